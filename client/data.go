package client

import (
	"encoding/base64"
	"fmt"

	"github.com/Ethernal-Tech/algorand-infrastructure/subscriber"
)

// indexerTransaction is the long-form transaction shape of the history
// source wire format
type indexerTransaction struct {
	ID               string            `json:"id"`
	TxType           subscriber.TxType `json:"tx-type"`
	Sender           string            `json:"sender"`
	Fee              uint64            `json:"fee"`
	FirstValid       uint64            `json:"first-valid"`
	LastValid        uint64            `json:"last-valid"`
	ConfirmedRound   uint64            `json:"confirmed-round"`
	RoundTime        int64             `json:"round-time"`
	IntraRoundOffset uint64            `json:"intra-round-offset"`
	GenesisID        string            `json:"genesis-id"`
	GenesisHash      []byte            `json:"genesis-hash"`
	Group            []byte            `json:"group"`
	Lease            []byte            `json:"lease"`
	Note             []byte            `json:"note"`
	RekeyTo          string            `json:"rekey-to"`

	Payment       *subscriber.PaymentFields       `json:"payment-transaction"`
	AssetTransfer *subscriber.AssetTransferFields `json:"asset-transfer-transaction"`
	AssetConfig   *indexerAssetConfigFields       `json:"asset-config-transaction"`
	Application   *indexerApplicationFields       `json:"application-transaction"`
	KeyReg        *subscriber.KeyRegFields        `json:"keyreg-transaction"`
	AssetFreeze   *subscriber.AssetFreezeFields   `json:"asset-freeze-transaction"`

	CreatedAssetIndex       uint64 `json:"created-asset-index"`
	CreatedApplicationIndex uint64 `json:"created-application-index"`

	Logs             []string                        `json:"logs"`
	GlobalStateDelta []indexerStateDeltaKeyValue     `json:"global-state-delta"`
	LocalStateDelta  []indexerAccountStateDelta      `json:"local-state-delta"`
	InnerTxns        []indexerTransaction            `json:"inner-txns"`
}

type indexerAssetConfigFields struct {
	AssetID uint64                  `json:"asset-id"`
	Params  *subscriber.AssetParams `json:"params"`
}

type indexerApplicationFields struct {
	ApplicationID     uint64                  `json:"application-id"`
	OnCompletion      string                  `json:"on-completion"`
	ApplicationArgs   []string                `json:"application-args"`
	Accounts          []string                `json:"accounts"`
	ForeignApps       []uint64                `json:"foreign-apps"`
	ForeignAssets     []uint64                `json:"foreign-assets"`
	ApprovalProgram   []byte                  `json:"approval-program"`
	ClearStateProgram []byte                  `json:"clear-state-program"`
	GlobalStateSchema *subscriber.StateSchema `json:"global-state-schema"`
	LocalStateSchema  *subscriber.StateSchema `json:"local-state-schema"`
	ExtraProgramPages uint32                  `json:"extra-program-pages"`
}

type indexerStateDeltaKeyValue struct {
	Key   string            `json:"key"`
	Value indexerStateDelta `json:"value"`
}

type indexerStateDelta struct {
	Action uint64 `json:"action"`
	Bytes  string `json:"bytes"`
	Uint   uint64 `json:"uint"`
}

type indexerAccountStateDelta struct {
	Address string                      `json:"address"`
	Delta   []indexerStateDeltaKeyValue `json:"delta"`
}

// toCanonical converts a wire transaction into the canonical model,
// recursively over inner transactions
func (it *indexerTransaction) toCanonical() (*subscriber.Transaction, error) {
	tx := &subscriber.Transaction{
		ID:               it.ID,
		Type:             it.TxType,
		Sender:           it.Sender,
		Fee:              it.Fee,
		FirstValid:       it.FirstValid,
		LastValid:        it.LastValid,
		ConfirmedRound:   it.ConfirmedRound,
		RoundTime:        it.RoundTime,
		IntraRoundOffset: it.IntraRoundOffset,
		GenesisID:        it.GenesisID,
		GenesisHash:      it.GenesisHash,
		Group:            it.Group,
		Lease:            it.Lease,
		Note:             it.Note,
		RekeyTo:          it.RekeyTo,
		Payment:          it.Payment,
		AssetTransfer:    it.AssetTransfer,
		KeyReg:           it.KeyReg,
		AssetFreeze:      it.AssetFreeze,
	}

	if it.AssetConfig != nil {
		tx.AssetConfig = &subscriber.AssetConfigFields{
			AssetID:        it.AssetConfig.AssetID,
			Params:         it.AssetConfig.Params,
			CreatedAssetID: it.CreatedAssetIndex,
		}
	}

	if it.Application != nil {
		appl, err := it.applicationToCanonical()
		if err != nil {
			return nil, err
		}

		tx.ApplicationCall = appl
	}

	if len(it.InnerTxns) > 0 {
		tx.InnerTxns = make([]*subscriber.Transaction, len(it.InnerTxns))

		for i := range it.InnerTxns {
			inner, err := it.InnerTxns[i].toCanonical()
			if err != nil {
				return nil, err
			}

			tx.InnerTxns[i] = inner
		}
	}

	return tx, nil
}

func (it *indexerTransaction) applicationToCanonical() (*subscriber.ApplicationCallFields, error) {
	wire := it.Application

	fields := &subscriber.ApplicationCallFields{
		ApplicationID:        wire.ApplicationID,
		OnCompletion:         subscriber.OnCompletion(wire.OnCompletion),
		Accounts:             wire.Accounts,
		ForeignApps:          wire.ForeignApps,
		ForeignAssets:        wire.ForeignAssets,
		ApprovalProgram:      wire.ApprovalProgram,
		ClearStateProgram:    wire.ClearStateProgram,
		GlobalStateSchema:    wire.GlobalStateSchema,
		LocalStateSchema:     wire.LocalStateSchema,
		ExtraProgramPages:    wire.ExtraProgramPages,
		CreatedApplicationID: it.CreatedApplicationIndex,
		Logs:                 it.Logs,
	}

	if fields.OnCompletion == "" {
		fields.OnCompletion = subscriber.OnCompletionNoOp
	}

	if len(wire.ApplicationArgs) > 0 {
		fields.Args = make([][]byte, len(wire.ApplicationArgs))

		for i, arg := range wire.ApplicationArgs {
			data, err := base64.StdEncoding.DecodeString(arg)
			if err != nil {
				return nil, fmt.Errorf("could not decode application arg %d: %w", i, err)
			}

			fields.Args[i] = data
		}
	}

	if len(it.GlobalStateDelta) > 0 {
		fields.GlobalStateDelta = stateDeltaToCanonical(it.GlobalStateDelta)
	}

	if len(it.LocalStateDelta) > 0 {
		fields.LocalStateDelta = make([]subscriber.AccountStateDelta, len(it.LocalStateDelta))

		for i, acct := range it.LocalStateDelta {
			fields.LocalStateDelta[i] = subscriber.AccountStateDelta{
				Address: acct.Address,
				Delta:   stateDeltaToCanonical(acct.Delta),
			}
		}
	}

	return fields, nil
}

func stateDeltaToCanonical(kvs []indexerStateDeltaKeyValue) map[string]subscriber.StateDelta {
	result := make(map[string]subscriber.StateDelta, len(kvs))

	for _, kv := range kvs {
		var bytes []byte
		if kv.Value.Bytes != "" {
			// state values arrive base64 encoded
			if decoded, err := base64.StdEncoding.DecodeString(kv.Value.Bytes); err == nil {
				bytes = decoded
			}
		}

		result[kv.Key] = subscriber.StateDelta{
			Action: kv.Value.Action,
			Bytes:  bytes,
			Uint:   kv.Value.Uint,
		}
	}

	return result
}
