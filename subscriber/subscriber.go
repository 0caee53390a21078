package subscriber

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ethernal-Tech/algorand-infrastructure/common"
	"github.com/hashicorp/go-hclog"
)

const (
	waitForBlockTimeout = time.Second * 60
	errorBackoff        = time.Second * 5
)

// FilterResult groups the transactions one named filter matched in a poll.
// MappedTransactions is populated as well when the filter declares a mapper.
type FilterResult struct {
	FilterName         string         `json:"filter-name"`
	Transactions       []*Transaction `json:"transactions"`
	MappedTransactions []interface{}  `json:"-"`
}

// PollResult is the outcome of one poll
type PollResult struct {
	StartingWatermark uint64         `json:"starting-watermark"`
	NewWatermark      uint64         `json:"new-watermark"`
	SyncedRoundRange  RoundRange     `json:"synced-round-range"`
	CurrentRound      uint64         `json:"current-round"`
	Matches           []FilterResult `json:"matches"`
}

// Subscriber drives the subscription engine: it plans what rounds to cover
// next, fetches and normalizes them, evaluates the named filters and routes
// matches through the dispatcher while advancing the persisted watermark.
type Subscriber struct {
	config        *SubscriptionConfig
	blockSource   BlockSource
	historySource HistorySource
	store         WatermarkStore
	dispatcher    *Dispatcher
	fetcher       *fetcher

	mutex           sync.Mutex
	running         bool
	watermark       uint64
	watermarkLoaded bool

	stopCh   chan struct{}
	stopOnce sync.Once

	logger hclog.Logger
}

// NewSubscriber validates the config and wires the engine. The history
// source may be nil; catchup-with-indexer then degrades to the block source.
func NewSubscriber(
	config *SubscriptionConfig, blockSource BlockSource, historySource HistorySource, logger hclog.Logger,
) (*Subscriber, error) {
	config.PopulateDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	decoder := NewEventDecoder(config.Arc28Events, logger.Named("arc28"))

	return &Subscriber{
		config:        config,
		blockSource:   blockSource,
		historySource: historySource,
		store:         config.WatermarkStore,
		dispatcher:    NewDispatcher(logger.Named("dispatcher")),
		fetcher: &fetcher{
			blockSource:   blockSource,
			historySource: historySource,
			config:        config,
			decoder:       decoder,
			logger:        logger.Named("fetcher"),
		},
		stopCh: make(chan struct{}),
		logger: logger,
	}, nil
}

// On registers a handler for a raw event name
func (s *Subscriber) On(event string, handler EventHandler) {
	s.dispatcher.On(event, handler)
}

// OnTransaction registers a handler for single matched transactions of the
// named filter. The payload is the *Transaction, or the mapper output when
// the filter declares a mapper.
func (s *Subscriber) OnTransaction(filterName string, handler EventHandler) {
	s.dispatcher.On(TransactionEventName(filterName), handler)
}

// OnBatch registers a handler for the per-poll batch of the named filter.
// The payload is the *FilterResult.
func (s *Subscriber) OnBatch(filterName string, handler EventHandler) {
	s.dispatcher.On(BatchEventName(filterName), handler)
}

// OnBeforePoll registers a handler receiving BeforePollMetadata
func (s *Subscriber) OnBeforePoll(handler EventHandler) {
	s.dispatcher.On(EventBeforePoll, handler)
}

// OnPoll registers a handler receiving the *PollResult of every poll
func (s *Subscriber) OnPoll(handler EventHandler) {
	s.dispatcher.On(EventPoll, handler)
}

// OnError registers a handler receiving poll and handler errors
func (s *Subscriber) OnError(handler EventHandler) {
	s.dispatcher.On(EventError, handler)
}

// Watermark returns the largest fully processed round
func (s *Subscriber) Watermark() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.watermark
}

// PollOnce executes a single poll cycle. It either advances the watermark by
// exactly the planned amount and persists it, or returns an error and leaves
// the watermark untouched. Errors are also emitted on the error event.
func (s *Subscriber) PollOnce(ctx context.Context) (*PollResult, error) {
	result, err := s.pollOnce(ctx)
	if err != nil {
		s.dispatcher.Emit(EventError, err)

		return nil, err
	}

	return result, nil
}

func (s *Subscriber) pollOnce(ctx context.Context) (*PollResult, error) {
	watermark, err := s.currentWatermark(ctx)
	if err != nil {
		return nil, err
	}

	status, err := s.blockSource.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get node status: %w", err)
	}

	tip := status.LastRound

	s.dispatcher.Emit(EventBeforePoll, BeforePollMetadata{
		Watermark:    watermark,
		CurrentRound: tip,
	})

	plan, err := buildPlan(watermark, tip, s.historySource != nil, s.config)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Poll plan", "source", plan.Source,
		"range", plan.Range, "watermark", watermark, "tip", tip)

	matches, err := s.fetcher.execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	result := &PollResult{
		StartingWatermark: watermark,
		NewWatermark:      plan.NewWatermark,
		SyncedRoundRange:  plan.Range,
		CurrentRound:      tip,
		Matches:           make([]FilterResult, len(s.config.Filters)),
	}

	for i := range s.config.Filters {
		filterResult, err := buildFilterResult(&s.config.Filters[i], matches[i])
		if err != nil {
			return nil, err
		}

		result.Matches[i] = filterResult
	}

	s.dispatchMatches(result)

	if s.store != nil {
		if err := s.store.Save(ctx, plan.NewWatermark); err != nil {
			return nil, fmt.Errorf("could not persist watermark %d: %w", plan.NewWatermark, err)
		}
	}

	s.mutex.Lock()
	s.watermark = plan.NewWatermark
	s.mutex.Unlock()

	s.dispatcher.Emit(EventPoll, result)

	return result, nil
}

func buildFilterResult(nf *NamedFilter, txs []*Transaction) (FilterResult, error) {
	result := FilterResult{
		FilterName:   nf.Name,
		Transactions: txs,
	}

	if nf.Mapper == nil {
		return result, nil
	}

	result.MappedTransactions = make([]interface{}, len(txs))

	for i, tx := range txs {
		mapped, err := nf.Mapper(tx)
		if err != nil {
			return FilterResult{}, fmt.Errorf("mapper for filter %q: %w", nf.Name, err)
		}

		result.MappedTransactions[i] = mapped
	}

	return result, nil
}

// dispatchMatches emits, per filter, the batch event first when non-empty,
// then every single transaction emission in order
func (s *Subscriber) dispatchMatches(result *PollResult) {
	for i := range result.Matches {
		filterResult := &result.Matches[i]

		if len(filterResult.Transactions) == 0 {
			continue
		}

		s.dispatcher.Emit(BatchEventName(filterResult.FilterName), filterResult)

		for j, tx := range filterResult.Transactions {
			if filterResult.MappedTransactions != nil {
				s.dispatcher.Emit(TransactionEventName(filterResult.FilterName), filterResult.MappedTransactions[j])
			} else {
				s.dispatcher.Emit(TransactionEventName(filterResult.FilterName), tx)
			}
		}
	}
}

func (s *Subscriber) currentWatermark(ctx context.Context) (uint64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.watermarkLoaded {
		if s.store != nil {
			watermark, err := s.store.Load(ctx)
			if err != nil {
				return 0, fmt.Errorf("could not load watermark: %w", err)
			}

			s.watermark = watermark
		}

		s.watermarkLoaded = true
	}

	return s.watermark, nil
}

// Start runs polls continuously until the context is cancelled or Stop is
// called. Poll errors are absorbed: they are emitted on the error event and
// followed by a short backoff. Concurrent Start is rejected.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mutex.Lock()

	if s.running {
		s.mutex.Unlock()

		return ErrAlreadyRunning
	}

	s.running = true
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		s.running = false
		s.mutex.Unlock()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	s.logger.Info("Subscriber started")
	defer s.logger.Info("Subscriber stopped")

	for {
		select {
		case <-runCtx.Done():
			return nil
		default:
		}

		result, err := s.PollOnce(runCtx)

		switch {
		case err != nil:
			if common.IsContextDoneErr(err) {
				return nil
			}

			s.logger.Error("Poll failed", "err", err)

			if !s.sleep(runCtx, errorBackoff) {
				return nil
			}
		case result.SyncedRoundRange.IsEmpty() &&
			s.config.WaitForBlockWhenAtTip &&
			result.NewWatermark >= result.CurrentRound:
			s.waitForNextRound(runCtx, result.NewWatermark)
		default:
			if !s.sleep(runCtx, s.config.Frequency) {
				return nil
			}
		}
	}
}

// Stop sets the cancellation signal, interrupting any sleep or block wait.
// Idempotent.
func (s *Subscriber) Stop(reason string) {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping subscriber", "reason", reason)

		close(s.stopCh)
	})
}

// Close stops the loop and shuts the dispatcher down after the handler
// queues drain
func (s *Subscriber) Close() error {
	s.Stop("closed")

	return s.dispatcher.Close()
}

// waitForNextRound long-polls the block source for a round past the
// watermark. A timeout or failure just ends the wait; the next poll decides
// what to do.
func (s *Subscriber) waitForNextRound(ctx context.Context, round uint64) {
	waitCtx, cancel := context.WithTimeout(ctx, waitForBlockTimeout)
	defer cancel()

	if _, err := s.blockSource.StatusAfterBlock(waitCtx, round); err != nil && !common.IsContextDoneErr(err) {
		s.logger.Debug("Wait for next round ended", "round", round, "err", err)
	}
}

func (s *Subscriber) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(duration):
		return true
	}
}
