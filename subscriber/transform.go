package subscriber

import (
	"encoding/base64"
	"fmt"
	"sort"
)

// BlockMetadata is the per-block bundle applied to every transaction
// extracted from that block
type BlockMetadata struct {
	Round       uint64
	Timestamp   int64
	GenesisID   string
	GenesisHash []byte
}

// MetadataFromBlock derives the metadata bundle from a raw block
func MetadataFromBlock(block *Block) BlockMetadata {
	return BlockMetadata{
		Round:       block.Round,
		Timestamp:   block.Timestamp,
		GenesisID:   block.GenesisID,
		GenesisHash: block.GenesisHash,
	}
}

// NormalizeBlock converts a raw block into its ordered sequence of top level
// canonical transactions, inner transactions attached. Top level transactions
// are assigned consecutive intra round offsets starting at 0; an inner
// transaction is placed at parent offset + 1 + its position among siblings,
// recursively.
func NormalizeBlock(block *Block) ([]*Transaction, error) {
	meta := MetadataFromBlock(block)

	txs := make([]*Transaction, len(block.Transactions))

	for i := range block.Transactions {
		tx, err := normalizeSignedTxn(&block.Transactions[i], meta, uint64(i)) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("round %d txn %d: %w", block.Round, i, err)
		}

		txs[i] = tx
	}

	return txs, nil
}

func normalizeSignedTxn(stxn *SignedTxnInBlock, meta BlockMetadata, offset uint64) (*Transaction, error) {
	raw := &stxn.Txn

	txID := stxn.TxID
	if txID == "" {
		var err error

		txID, err = ComputeTxID(stxn)
		if err != nil {
			return nil, err
		}
	}

	genesisID := raw.GenesisID
	if genesisID == "" {
		genesisID = meta.GenesisID
	}

	genesisHash := raw.GenesisHash
	if len(genesisHash) == 0 {
		genesisHash = meta.GenesisHash
	}

	tx := &Transaction{
		ID:               txID,
		Type:             raw.Type,
		Sender:           raw.Sender,
		Fee:              raw.Fee,
		FirstValid:       raw.FirstValid,
		LastValid:        raw.LastValid,
		ConfirmedRound:   meta.Round,
		RoundTime:        meta.Timestamp,
		IntraRoundOffset: offset,
		GenesisID:        genesisID,
		GenesisHash:      genesisHash,
		Group:            raw.Group,
		Lease:            raw.Lease,
		Note:             raw.Note,
		RekeyTo:          raw.RekeyTo,
	}

	switch raw.Type {
	case TxTypePayment:
		tx.Payment = &PaymentFields{
			Receiver:         raw.Receiver,
			Amount:           raw.Amount,
			CloseRemainderTo: raw.CloseRemainderTo,
			CloseAmount:      stxn.ClosingAmount,
		}
	case TxTypeAssetTransfer:
		tx.AssetTransfer = &AssetTransferFields{
			AssetID:     raw.XferAsset,
			Amount:      raw.AssetAmount,
			Receiver:    raw.AssetReceiver,
			AssetSender: raw.AssetSender,
			CloseTo:     raw.AssetCloseTo,
			CloseAmount: stxn.AssetClosingAmount,
		}
	case TxTypeAssetConfig:
		tx.AssetConfig = &AssetConfigFields{
			AssetID:        raw.ConfigAsset,
			Params:         normalizeAssetParams(raw.AssetParams),
			CreatedAssetID: stxn.CreatedAssetID,
		}
	case TxTypeApplicationCall:
		tx.ApplicationCall = normalizeApplicationCall(stxn)
	case TxTypeKeyReg:
		tx.KeyReg = &KeyRegFields{
			VoteKey:          raw.VoteKey,
			SelectionKey:     raw.SelectionKey,
			VoteFirst:        raw.VoteFirst,
			VoteLast:         raw.VoteLast,
			VoteKeyDilution:  raw.VoteKeyDilution,
			NonParticipation: raw.NonParticipation,
		}
	case TxTypeAssetFreeze:
		tx.AssetFreeze = &AssetFreezeFields{
			AssetID:   raw.FreezeAsset,
			Address:   raw.FreezeAddress,
			NewFrozen: raw.AssetFrozen,
		}
	default:
		return nil, fmt.Errorf("unknown transaction type %q", raw.Type)
	}

	if stxn.EvalDelta != nil && len(stxn.EvalDelta.InnerTxns) > 0 {
		tx.InnerTxns = make([]*Transaction, len(stxn.EvalDelta.InnerTxns))

		for i := range stxn.EvalDelta.InnerTxns {
			inner, err := normalizeSignedTxn(
				&stxn.EvalDelta.InnerTxns[i], meta, offset+1+uint64(i)) //nolint:gosec
			if err != nil {
				return nil, err
			}

			tx.InnerTxns[i] = inner
		}
	}

	return tx, nil
}

func normalizeAssetParams(raw *RawAssetParams) *AssetParams {
	if raw == nil {
		return nil
	}

	return &AssetParams{
		Total:         raw.Total,
		Decimals:      raw.Decimals,
		DefaultFrozen: raw.DefaultFrozen,
		UnitName:      raw.UnitName,
		Name:          raw.Name,
		URL:           raw.URL,
		MetadataHash:  raw.MetadataHash,
		Manager:       raw.Manager,
		Reserve:       raw.Reserve,
		Freeze:        raw.Freeze,
		Clawback:      raw.Clawback,
	}
}

// normalizeApplicationCall promotes the apply data of an application call:
// raw logs become base64 encoded canonical logs, state deltas move to the
// payload and an application id at the signed transaction level becomes the
// created application index
func normalizeApplicationCall(stxn *SignedTxnInBlock) *ApplicationCallFields {
	raw := &stxn.Txn

	fields := &ApplicationCallFields{
		ApplicationID:        raw.ApplicationID,
		OnCompletion:         OnCompletionFromWire(raw.OnCompletion),
		Args:                 raw.ApplicationArgs,
		Accounts:             raw.Accounts,
		ForeignApps:          raw.ForeignApps,
		ForeignAssets:        raw.ForeignAssets,
		ApprovalProgram:      raw.ApprovalProgram,
		ClearStateProgram:    raw.ClearStateProgram,
		ExtraProgramPages:    raw.ExtraProgramPages,
		CreatedApplicationID: stxn.CreatedApplicationID,
	}

	if raw.GlobalStateSchema != nil {
		fields.GlobalStateSchema = &StateSchema{
			NumUints:      raw.GlobalStateSchema.NumUints,
			NumByteSlices: raw.GlobalStateSchema.NumByteSlices,
		}
	}

	if raw.LocalStateSchema != nil {
		fields.LocalStateSchema = &StateSchema{
			NumUints:      raw.LocalStateSchema.NumUints,
			NumByteSlices: raw.LocalStateSchema.NumByteSlices,
		}
	}

	if dt := stxn.EvalDelta; dt != nil {
		if len(dt.Logs) > 0 {
			fields.Logs = make([]string, len(dt.Logs))
			for i, rawLog := range dt.Logs {
				fields.Logs[i] = base64.StdEncoding.EncodeToString([]byte(rawLog))
			}
		}

		fields.GlobalStateDelta = dt.GlobalDelta

		if len(dt.LocalDeltas) > 0 {
			fields.LocalStateDelta = make([]AccountStateDelta, 0, len(dt.LocalDeltas))
			for address, delta := range dt.LocalDeltas {
				fields.LocalStateDelta = append(fields.LocalStateDelta, AccountStateDelta{
					Address: address,
					Delta:   delta,
				})
			}

			// map iteration order is not stable, normalization output must be
			sort.Slice(fields.LocalStateDelta, func(i, j int) bool {
				return fields.LocalStateDelta[i].Address < fields.LocalStateDelta[j].Address
			})
		}
	}

	return fields
}
