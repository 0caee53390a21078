package db

import (
	"fmt"

	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
	subscriberbbolt "github.com/Ethernal-Tech/algorand-infrastructure/subscriber/db/bbolt"
	subscriberleveldb "github.com/Ethernal-Tech/algorand-infrastructure/subscriber/db/leveldb"
)

// NewWatermarkStoreInit creates and initializes a watermark database of the
// given backend name. An empty name selects bbolt.
func NewWatermarkStoreInit(name string, filePath string) (subscriber.WatermarkDatabase, error) {
	var db subscriber.WatermarkDatabase

	switch name {
	case "", "bbolt":
		db = &subscriberbbolt.BBoltWatermarkStore{}
	case "leveldb":
		db = &subscriberleveldb.LevelDBWatermarkStore{}
	default:
		return nil, fmt.Errorf("unknown watermark store backend %q", name)
	}

	if err := db.Init(filePath); err != nil {
		return nil, err
	}

	return db, nil
}
