package subscriber

import (
	"context"
	"sync"
)

// WatermarkDatabase is a persistent watermark store with a lifecycle
type WatermarkDatabase interface {
	WatermarkStore
	Init(filePath string) error
	Close() error
}

// InMemoryWatermarkStore keeps the watermark in memory only. Useful for
// tests and for subscriptions that are allowed to restart from scratch.
type InMemoryWatermarkStore struct {
	mutex     sync.Mutex
	watermark uint64
}

var _ WatermarkStore = (*InMemoryWatermarkStore)(nil)

func NewInMemoryWatermarkStore(watermark uint64) *InMemoryWatermarkStore {
	return &InMemoryWatermarkStore{watermark: watermark}
}

func (s *InMemoryWatermarkStore) Load(_ context.Context) (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.watermark, nil
}

func (s *InMemoryWatermarkStore) Save(_ context.Context, watermark uint64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.watermark = watermark

	return nil
}
