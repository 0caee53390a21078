package subscriberleveldb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	core "github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBWatermarkStore persists the watermark in a leveldb database
type LevelDBWatermarkStore struct {
	db *leveldb.DB
}

var watermarkKey = []byte("watermark_default")

var _ core.WatermarkDatabase = (*LevelDBWatermarkStore)(nil)

func (ld *LevelDBWatermarkStore) Init(filePath string) error {
	db, err := leveldb.OpenFile(filePath, nil)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	ld.db = db

	return nil
}

func (ld *LevelDBWatermarkStore) Close() error {
	return ld.db.Close()
}

func (ld *LevelDBWatermarkStore) Load(_ context.Context) (uint64, error) {
	data, err := ld.db.Get(watermarkKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}

		return 0, err
	}

	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted watermark entry of length %d", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

func (ld *LevelDBWatermarkStore) Save(_ context.Context, watermark uint64) error {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, watermark)

	return ld.db.Put(watermarkKey, data, nil)
}
