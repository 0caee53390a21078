package subscriber

import (
	"errors"
	"fmt"
)

// PlanSource selects which upstream a plan reads from
type PlanSource int

const (
	SourceNone PlanSource = iota
	SourceBlock
	SourceHistory
)

func (ps PlanSource) String() string {
	switch ps {
	case SourceBlock:
		return "block"
	case SourceHistory:
		return "history"
	default:
		return "none"
	}
}

// Plan is the sync planner output: the source to use, the inclusive round
// range to cover and the watermark to adopt after a successful poll.
type Plan struct {
	Source       PlanSource
	Range        RoundRange
	NewWatermark uint64
}

// buildPlan decides the next range of rounds to cover. The planner is
// memoryless across polls: a range shortened by a limit leaves the rest to
// the next poll, resumed purely from the watermark.
func buildPlan(watermark, tip uint64, hasHistory bool, config *SubscriptionConfig) (Plan, error) {
	if watermark >= tip {
		return Plan{Source: SourceNone, NewWatermark: watermark}, nil
	}

	switch config.SyncBehaviour {
	case SyncOldestStartNow:
		// the very first run skips straight to the tip
		if watermark == 0 {
			return Plan{Source: SourceNone, NewWatermark: tip}, nil
		}
	case SkipSyncNewest:
		// never replay older rounds, resume from the tip
		return Plan{Source: SourceNone, NewWatermark: tip}, nil
	case Fail:
		if tip > watermark+config.MaxRoundsToSync {
			return Plan{}, errors.Join(ErrBehindTip,
				fmt.Errorf("watermark %d is more than %d rounds behind tip %d",
					watermark, config.MaxRoundsToSync, tip))
		}
	case CatchupWithHistory:
		if hasHistory && tip-watermark > config.MaxRoundsToSync {
			to := min(watermark+config.MaxHistoryRoundsToSync, tip)

			return Plan{
				Source:       SourceHistory,
				Range:        RoundRange{From: watermark + 1, To: to},
				NewWatermark: to,
			}, nil
		}
	case SyncOldest:
	}

	to := min(watermark+config.MaxRoundsToSync, tip)

	return Plan{
		Source:       SourceBlock,
		Range:        RoundRange{From: watermark + 1, To: to},
		NewWatermark: to,
	}, nil
}
