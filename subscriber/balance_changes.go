package subscriber

import "sort"

type balanceKey struct {
	address string
	assetID uint64
}

type balanceEntry struct {
	amount int64
	roles  map[BalanceChangeRole]bool
}

type balanceAccumulator map[balanceKey]*balanceEntry

func (acc balanceAccumulator) add(address string, assetID uint64, amount int64, role BalanceChangeRole) {
	if address == "" {
		return
	}

	key := balanceKey{address: address, assetID: assetID}

	entry, ok := acc[key]
	if !ok {
		entry = &balanceEntry{roles: map[BalanceChangeRole]bool{}}
		acc[key] = entry
	}

	entry.amount += amount
	entry.roles[role] = true
}

var roleOrder = []BalanceChangeRole{
	RoleSender, RoleReceiver, RoleCloseTo, RoleAssetCreator, RoleAssetDestroyer,
}

// toChanges flattens the accumulator, coalescing every (address, asset) pair
// into a single entry. Zero amount entries survive only for asset destroys.
// The output order is stable: by address, then asset id.
func (acc balanceAccumulator) toChanges() []BalanceChange {
	changes := make([]BalanceChange, 0, len(acc))

	for key, entry := range acc {
		if entry.amount == 0 && !entry.roles[RoleAssetDestroyer] {
			continue
		}

		roles := make([]BalanceChangeRole, 0, len(entry.roles))

		for _, role := range roleOrder {
			if entry.roles[role] {
				roles = append(roles, role)
			}
		}

		changes = append(changes, BalanceChange{
			Address: key.address,
			AssetID: key.assetID,
			Amount:  entry.amount,
			Roles:   roles,
		})
	}

	if len(changes) == 0 {
		return nil
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Address != changes[j].Address {
			return changes[i].Address < changes[j].Address
		}

		return changes[i].AssetID < changes[j].AssetID
	})

	return changes
}

// computeBalanceChanges synthesizes the signed per (address, asset) deltas a
// transaction and its entire inner subtree cause. The native asset includes
// fees. The inner transactions are expected to carry their own changes
// already (the computation runs bottom up).
func computeBalanceChanges(tx *Transaction) []BalanceChange {
	acc := balanceAccumulator{}

	accumulateDirectChanges(acc, tx)

	for _, inner := range tx.InnerTxns {
		for _, change := range inner.BalanceChanges {
			if len(change.Roles) == 0 {
				continue
			}

			acc.add(change.Address, change.AssetID, change.Amount, change.Roles[0])

			for _, role := range change.Roles[1:] {
				acc.add(change.Address, change.AssetID, 0, role)
			}
		}
	}

	return acc.toChanges()
}

func accumulateDirectChanges(acc balanceAccumulator, tx *Transaction) {
	if tx.Fee > 0 {
		acc.add(tx.Sender, 0, -int64(tx.Fee), RoleSender) //nolint:gosec
	}

	switch {
	case tx.Payment != nil:
		pay := tx.Payment

		acc.add(tx.Sender, 0, -int64(pay.Amount), RoleSender) //nolint:gosec
		acc.add(pay.Receiver, 0, int64(pay.Amount), RoleReceiver) //nolint:gosec

		if pay.CloseRemainderTo != "" && pay.CloseAmount > 0 {
			acc.add(tx.Sender, 0, -int64(pay.CloseAmount), RoleSender) //nolint:gosec
			acc.add(pay.CloseRemainderTo, 0, int64(pay.CloseAmount), RoleCloseTo) //nolint:gosec
		}
	case tx.AssetTransfer != nil:
		axfer := tx.AssetTransfer

		// a clawback transfer moves funds of the asset sender, not the signer
		actualSender := axfer.AssetSender
		if actualSender == "" {
			actualSender = tx.Sender
		}

		acc.add(actualSender, axfer.AssetID, -int64(axfer.Amount), RoleSender) //nolint:gosec
		acc.add(axfer.Receiver, axfer.AssetID, int64(axfer.Amount), RoleReceiver) //nolint:gosec

		if axfer.CloseTo != "" && axfer.CloseAmount > 0 {
			acc.add(actualSender, axfer.AssetID, -int64(axfer.CloseAmount), RoleSender) //nolint:gosec
			acc.add(axfer.CloseTo, axfer.AssetID, int64(axfer.CloseAmount), RoleCloseTo) //nolint:gosec
		}
	case tx.AssetConfig != nil:
		acfg := tx.AssetConfig

		if acfg.CreatedAssetID != 0 && acfg.Params != nil {
			acc.add(tx.Sender, acfg.CreatedAssetID, int64(acfg.Params.Total), RoleAssetCreator) //nolint:gosec
		} else if acfg.AssetID != 0 && acfg.Params == nil {
			acc.add(tx.Sender, acfg.AssetID, 0, RoleAssetDestroyer)
		}
	}
}
