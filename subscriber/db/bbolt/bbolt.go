package subscriberbbolt

import (
	"context"
	"encoding/binary"
	"fmt"

	core "github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	"go.etcd.io/bbolt"
)

// BBoltWatermarkStore persists the watermark in a single bbolt bucket
type BBoltWatermarkStore struct {
	db *bbolt.DB
}

var (
	watermarkBucket = []byte("Watermark")

	defaultKey = []byte("default")
)

var _ core.WatermarkDatabase = (*BBoltWatermarkStore)(nil)

func (bd *BBoltWatermarkStore) Init(filePath string) error {
	db, err := bbolt.Open(filePath, 0600, nil)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	bd.db = db

	return db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(watermarkBucket)
		if err != nil {
			return fmt.Errorf("could not create bucket: %s, err: %w", string(watermarkBucket), err)
		}

		return nil
	})
}

func (bd *BBoltWatermarkStore) Close() error {
	return bd.db.Close()
}

func (bd *BBoltWatermarkStore) Load(_ context.Context) (uint64, error) {
	var result uint64

	if err := bd.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(watermarkBucket).Get(defaultKey); len(data) == 8 {
			result = binary.BigEndian.Uint64(data)
		}

		return nil
	}); err != nil {
		return 0, err
	}

	return result, nil
}

func (bd *BBoltWatermarkStore) Save(_ context.Context, watermark uint64) error {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, watermark)

	return bd.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(watermarkBucket).Put(defaultKey, data)
	})
}
