package subscriber

import (
	"errors"
	"fmt"
	"time"
)

// SyncBehaviour selects the catch-up policy when the watermark lags the tip
type SyncBehaviour string

const (
	// CatchupWithHistory uses the history source for large gaps
	CatchupWithHistory SyncBehaviour = "catchup-with-indexer"
	// SyncOldest syncs forward from the watermark, oldest rounds first
	SyncOldest SyncBehaviour = "sync-oldest"
	// SyncOldestStartNow behaves like SyncOldest, except the very first run
	// starts at the current tip instead of the beginning of the chain
	SyncOldestStartNow SyncBehaviour = "sync-oldest-start-now"
	// SkipSyncNewest never replays older rounds; every poll adopts the tip
	// as the new watermark without syncing the gap
	SkipSyncNewest SyncBehaviour = "skip-sync-newest"
	// Fail raises a fatal error when the gap exceeds the configured limit
	Fail SyncBehaviour = "fail"
)

func (sb SyncBehaviour) isValid() bool {
	switch sb {
	case CatchupWithHistory, SyncOldest, SyncOldestStartNow, SkipSyncNewest, Fail:
		return true
	default:
		return false
	}
}

const (
	defaultMaxRoundsToSync        = 500
	defaultMaxHistoryRoundsToSync = 1000
	defaultBlockFetchWorkers      = 30
)

// SubscriptionConfig describes a single subscription: its named filters, the
// declared event schemas shared by all filters, the catch-up policy and the
// watermark store.
type SubscriptionConfig struct {
	Filters     []NamedFilter
	Arc28Events []Arc28EventGroup

	// largest round count covered by one block source poll
	MaxRoundsToSync uint64 `json:"maxRoundsToSync"`
	// largest round count covered by one history source poll
	MaxHistoryRoundsToSync uint64 `json:"maxHistoryRoundsToSync"`

	SyncBehaviour SyncBehaviour `json:"syncBehaviour"`

	// pause between polls in continuous mode
	Frequency time.Duration `json:"frequency"`
	// long-poll the block source instead of sleeping when caught up
	WaitForBlockWhenAtTip bool `json:"waitForBlockWhenAtTip"`

	// fan-out width for parallel block retrieval
	BlockFetchWorkers int `json:"blockFetchWorkers"`

	WatermarkStore WatermarkStore
}

// PopulateDefaults fills zero limits with the reference defaults
func (c *SubscriptionConfig) PopulateDefaults() {
	if c.MaxRoundsToSync == 0 {
		c.MaxRoundsToSync = defaultMaxRoundsToSync
	}

	if c.MaxHistoryRoundsToSync == 0 {
		c.MaxHistoryRoundsToSync = defaultMaxHistoryRoundsToSync
	}

	if c.BlockFetchWorkers == 0 {
		c.BlockFetchWorkers = defaultBlockFetchWorkers
	}
}

// Validate rejects unusable configurations: no filters, duplicate or unnamed
// filters, negative or zero durations and limits, unknown sync behaviours.
func (c *SubscriptionConfig) Validate() error {
	if len(c.Filters) == 0 {
		return errors.Join(ErrConfiguration, errors.New("at least one filter is required"))
	}

	seen := make(map[string]bool, len(c.Filters))

	for _, nf := range c.Filters {
		if nf.Name == "" {
			return errors.Join(ErrConfiguration, errors.New("filter name must not be empty"))
		}

		if seen[nf.Name] {
			return errors.Join(ErrConfiguration, fmt.Errorf("duplicate filter name %q", nf.Name))
		}

		seen[nf.Name] = true
	}

	if !c.SyncBehaviour.isValid() {
		return errors.Join(ErrConfiguration, fmt.Errorf("unrecognized sync behaviour %q", c.SyncBehaviour))
	}

	if c.Frequency <= 0 {
		return errors.Join(ErrConfiguration, errors.New("frequency must be a positive duration"))
	}

	if c.MaxRoundsToSync == 0 {
		return errors.Join(ErrConfiguration, errors.New("maxRoundsToSync must be positive"))
	}

	if c.MaxHistoryRoundsToSync == 0 {
		return errors.Join(ErrConfiguration, errors.New("maxHistoryRoundsToSync must be positive"))
	}

	if c.BlockFetchWorkers <= 0 {
		return errors.Join(ErrConfiguration, errors.New("blockFetchWorkers must be positive"))
	}

	return nil
}
