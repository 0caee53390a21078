package subscriber

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

const historyPageLimit = 1000

// fetcher executes a sync plan against the configured sources and returns,
// per named filter, the canonical transactions that match it
type fetcher struct {
	blockSource   BlockSource
	historySource HistorySource
	config        *SubscriptionConfig
	decoder       *EventDecoder
	logger        hclog.Logger
}

// execute returns the matched transactions indexed by filter declaration
// position
func (f *fetcher) execute(ctx context.Context, plan Plan) ([][]*Transaction, error) {
	switch plan.Source {
	case SourceBlock:
		return f.fetchFromBlocks(ctx, plan.Range)
	case SourceHistory:
		return f.fetchFromHistory(ctx, plan.Range)
	default:
		return make([][]*Transaction, len(f.config.Filters)), nil
	}
}

// fetchFromBlocks retrieves every block of the range with bounded
// parallelism, then evaluates all filters over the flattened transactions in
// round order. A single failed block retrieval fails the whole poll so the
// watermark never advances past unfetched rounds.
func (f *fetcher) fetchFromBlocks(ctx context.Context, rounds RoundRange) ([][]*Transaction, error) {
	blocks := make([]Block, rounds.Len())

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.config.BlockFetchWorkers)

	for i := uint64(0); i < rounds.Len(); i++ {
		round := rounds.From + i

		group.Go(func() error {
			block, err := f.blockSource.Block(groupCtx, round)
			if err != nil {
				return fmt.Errorf("could not fetch block %d: %w", round, err)
			}

			blocks[round-rounds.From] = block

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	matches := make([][]*Transaction, len(f.config.Filters))

	for i := range blocks {
		txs, err := NormalizeBlock(&blocks[i])
		if err != nil {
			return nil, err
		}

		f.logger.Debug("Processed block", "round", blocks[i].Round, "txs", len(txs))

		for _, tx := range txs {
			f.enrich(tx)
			f.matchTree(tx, matches)
		}
	}

	return matches, nil
}

// fetchFromHistory drives cursor based pagination per filter, translating
// each filter into the coarsest possible pre-filter the source understands.
// The full predicate runs on every returned transaction afterwards.
func (f *fetcher) fetchFromHistory(ctx context.Context, rounds RoundRange) ([][]*Transaction, error) {
	matches := make([][]*Transaction, len(f.config.Filters))

	for i := range f.config.Filters {
		filter := &f.config.Filters[i].Filter
		params := preFilterParams(filter, rounds)

		for {
			result, err := f.historySource.SearchTransactions(ctx, params)
			if err != nil {
				return nil, fmt.Errorf("history search for filter %q: %w", f.config.Filters[i].Name, err)
			}

			f.logger.Debug("History page",
				"filter", f.config.Filters[i].Name, "txs", len(result.Transactions))

			for _, tx := range result.Transactions {
				f.enrich(tx)
				f.matchTreeForFilter(tx, i, matches)
			}

			if result.NextToken == "" {
				break
			}

			params.NextToken = result.NextToken
		}
	}

	return matches, nil
}

func (f *fetcher) enrich(tx *Transaction) {
	enrichTransaction(tx, f.decoder)
}

// enrichTransaction synthesizes balance changes and decoded events over the
// whole inner transaction tree, children first
func enrichTransaction(tx *Transaction, decoder *EventDecoder) {
	for _, inner := range tx.InnerTxns {
		enrichTransaction(inner, decoder)
	}

	if tx.ApplicationCall != nil && decoder != nil {
		tx.Arc28Events = decoder.DecodeLogs(tx.ApplicationCall.Logs)
	}

	tx.BalanceChanges = computeBalanceChanges(tx)
}

// matchTree evaluates every filter over the transaction and its inner
// subtree, parents before children
func (f *fetcher) matchTree(tx *Transaction, matches [][]*Transaction) {
	for i := range f.config.Filters {
		if f.config.Filters[i].Filter.Matches(tx) {
			matches[i] = append(matches[i], tx)
		}
	}

	for _, inner := range tx.InnerTxns {
		f.matchTree(inner, matches)
	}
}

func (f *fetcher) matchTreeForFilter(tx *Transaction, filterIndx int, matches [][]*Transaction) {
	if f.config.Filters[filterIndx].Filter.Matches(tx) {
		matches[filterIndx] = append(matches[filterIndx], tx)
	}

	for _, inner := range tx.InnerTxns {
		f.matchTreeForFilter(inner, filterIndx, matches)
	}
}

// preFilterParams derives the history source query from a filter. Every
// parameter is a necessary condition only, never stricter than the filter
// itself; the final predicate pass fixes the rest.
func preFilterParams(filter *Filter, rounds RoundRange) TransactionSearchParams {
	params := TransactionSearchParams{
		MinRound: rounds.From,
		MaxRound: rounds.To,
		TxType:   filter.Type,
		Limit:    historyPageLimit,
	}

	// sender wins when both sides are constrained, receiver stays post-filter
	switch {
	case filter.Sender != "":
		params.Address = filter.Sender
		params.AddressRole = AddressRoleSender
	case filter.Receiver != "":
		params.Address = filter.Receiver
		params.AddressRole = AddressRoleReceiver
	}

	if len(filter.NotePrefix) > 0 {
		params.NotePrefix = filter.NotePrefix
	}

	if filter.AppID != nil {
		params.ApplicationID = *filter.AppID
	}

	if filter.AssetID != nil {
		params.AssetID = *filter.AssetID
	}

	// the source bounds are strict, widen by one to keep them necessary
	if filter.MinAmount != nil && *filter.MinAmount > 0 {
		greaterThan := *filter.MinAmount - 1
		params.CurrencyGreaterThan = &greaterThan
	}

	if filter.MaxAmount != nil {
		lessThan := *filter.MaxAmount + 1
		params.CurrencyLessThan = &lessThan
	}

	return params
}
