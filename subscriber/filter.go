package subscriber

import (
	"bytes"
	"crypto/sha512"
	"reflect"
)

// MapperFunc transforms a matched transaction before dispatch. The output
// type is opaque to the engine.
type MapperFunc func(tx *Transaction) (interface{}, error)

// CustomFilterFunc is a user supplied predicate, invoked as the final test
type CustomFilterFunc func(tx *Transaction) bool

// Filter is a compound predicate over canonical transactions. Every field is
// independently optional; a filter with zero fields matches everything.
type Filter struct {
	Type            TxType               `json:"tx-type,omitempty"`
	Sender          string               `json:"sender,omitempty"`
	Receiver        string               `json:"receiver,omitempty"`
	NotePrefix      []byte               `json:"note-prefix,omitempty"`
	AppID           *uint64              `json:"app-id,omitempty"`
	AssetID         *uint64              `json:"asset-id,omitempty"`
	MinAmount       *uint64              `json:"min-amount,omitempty"`
	MaxAmount       *uint64              `json:"max-amount,omitempty"`
	AppCreate       *bool                `json:"app-create,omitempty"`
	AssetCreate     *bool                `json:"asset-create,omitempty"`
	AppOnComplete   OnCompletion         `json:"app-on-complete,omitempty"`
	MethodSignature string               `json:"method-signature,omitempty"`
	BalanceChanges  []BalanceChangeFilter `json:"balance-changes,omitempty"`
	Arc28Events     []Arc28EventFilter   `json:"arc28-events,omitempty"`
	CustomFilter    CustomFilterFunc     `json:"-"`
}

// BalanceChangeFilter matches when the transaction has at least one balance
// change record satisfying all present constraints
type BalanceChangeFilter struct {
	Address   string              `json:"address,omitempty"`
	AssetID   *uint64             `json:"asset-id,omitempty"`
	MinAmount *int64              `json:"min-amount,omitempty"`
	MaxAmount *int64              `json:"max-amount,omitempty"`
	Roles     []BalanceChangeRole `json:"roles,omitempty"`
}

// Arc28EventFilter matches when the transaction has at least one decoded
// event satisfying all present constraints
type Arc28EventFilter struct {
	GroupName string                 `json:"group-name,omitempty"`
	EventName string                 `json:"event-name,omitempty"`
	Args      map[string]interface{} `json:"args,omitempty"`
}

// NamedFilter routes matches of Filter under Name on the event bus; the
// optional mapper is applied to every match before dispatch
type NamedFilter struct {
	Name   string
	Filter Filter
	Mapper MapperFunc
}

// Matches evaluates the filter against a canonical transaction. All set
// fields must pass; the evaluation short-circuits on the first failure and
// the user callback runs last. A field missing on the transaction simply
// fails the corresponding predicate.
func (f *Filter) Matches(tx *Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}

	if f.Sender != "" && tx.Sender != f.Sender {
		return false
	}

	if f.Receiver != "" {
		receiver, ok := tx.Receiver()
		if !ok || receiver != f.Receiver {
			return false
		}
	}

	if len(f.NotePrefix) > 0 && !bytes.HasPrefix(tx.Note, f.NotePrefix) {
		return false
	}

	if f.AppID != nil {
		if tx.ApplicationCall == nil || tx.ApplicationCall.ApplicationID != *f.AppID {
			return false
		}
	}

	if f.AssetID != nil && !txTouchesAsset(tx, *f.AssetID) {
		return false
	}

	if f.MinAmount != nil {
		amount, ok := tx.Amount()
		if !ok || amount < *f.MinAmount {
			return false
		}
	}

	if f.MaxAmount != nil {
		amount, ok := tx.Amount()
		if !ok || amount > *f.MaxAmount {
			return false
		}
	}

	if f.AppCreate != nil {
		created := tx.ApplicationCall != nil && tx.ApplicationCall.CreatedApplicationID != 0
		if created != *f.AppCreate {
			return false
		}
	}

	if f.AssetCreate != nil {
		created := tx.AssetConfig != nil && tx.AssetConfig.CreatedAssetID != 0
		if created != *f.AssetCreate {
			return false
		}
	}

	if f.AppOnComplete != "" {
		if tx.ApplicationCall == nil || tx.ApplicationCall.OnCompletion != f.AppOnComplete {
			return false
		}
	}

	if f.MethodSignature != "" && !matchesMethodSignature(tx, f.MethodSignature) {
		return false
	}

	if len(f.BalanceChanges) > 0 && !matchesAnyBalanceChange(f.BalanceChanges, tx.BalanceChanges) {
		return false
	}

	if len(f.Arc28Events) > 0 && !matchesAnyEvent(f.Arc28Events, tx.Arc28Events) {
		return false
	}

	if f.CustomFilter != nil && !f.CustomFilter(tx) {
		return false
	}

	return true
}

func txTouchesAsset(tx *Transaction, assetID uint64) bool {
	switch {
	case tx.AssetTransfer != nil:
		return tx.AssetTransfer.AssetID == assetID
	case tx.AssetConfig != nil:
		return tx.AssetConfig.AssetID == assetID || tx.AssetConfig.CreatedAssetID == assetID
	case tx.AssetFreeze != nil:
		return tx.AssetFreeze.AssetID == assetID
	default:
		return false
	}
}

// matchesMethodSignature checks that the first application argument carries
// the 4 byte selector derived from the given method signature
func matchesMethodSignature(tx *Transaction, signature string) bool {
	if tx.ApplicationCall == nil || len(tx.ApplicationCall.Args) == 0 {
		return false
	}

	firstArg := tx.ApplicationCall.Args[0]
	if len(firstArg) < 4 {
		return false
	}

	digest := sha512.Sum512_256([]byte(signature))

	return bytes.Equal(firstArg[:4], digest[:4])
}

func matchesAnyBalanceChange(filters []BalanceChangeFilter, changes []BalanceChange) bool {
	for _, bcf := range filters {
		for _, change := range changes {
			if bcf.matches(change) {
				return true
			}
		}
	}

	return false
}

func (bcf BalanceChangeFilter) matches(change BalanceChange) bool {
	if bcf.Address != "" && change.Address != bcf.Address {
		return false
	}

	if bcf.AssetID != nil && change.AssetID != *bcf.AssetID {
		return false
	}

	if bcf.MinAmount != nil && change.Amount < *bcf.MinAmount {
		return false
	}

	if bcf.MaxAmount != nil && change.Amount > *bcf.MaxAmount {
		return false
	}

	if len(bcf.Roles) > 0 {
		anyRole := false

		for _, role := range bcf.Roles {
			if change.HasRole(role) {
				anyRole = true

				break
			}
		}

		if !anyRole {
			return false
		}
	}

	return true
}

func matchesAnyEvent(filters []Arc28EventFilter, events []Arc28Event) bool {
	for _, ef := range filters {
		for _, event := range events {
			if ef.matches(event) {
				return true
			}
		}
	}

	return false
}

func (ef Arc28EventFilter) matches(event Arc28Event) bool {
	if ef.GroupName != "" && event.GroupName != ef.GroupName {
		return false
	}

	if ef.EventName != "" && event.EventName != ef.EventName {
		return false
	}

	for name, required := range ef.Args {
		decoded, ok := event.Args[name]
		if !ok || !reflect.DeepEqual(decoded, required) {
			return false
		}
	}

	return true
}
