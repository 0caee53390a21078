package subscriber

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findChange(t *testing.T, changes []BalanceChange, address string, assetID uint64) BalanceChange {
	t.Helper()

	for _, change := range changes {
		if change.Address == address && change.AssetID == assetID {
			return change
		}
	}

	require.Failf(t, "missing balance change", "address %s asset %d", address, assetID)

	return BalanceChange{}
}

func assetSum(changes []BalanceChange, assetID uint64) int64 {
	var sum int64

	for _, change := range changes {
		if change.AssetID == assetID {
			sum += change.Amount
		}
	}

	return sum
}

func TestComputeBalanceChanges_Payment(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypePayment,
		Sender: "SENDER",
		Fee:    1000,
		Payment: &PaymentFields{
			Receiver: "RECEIVER",
			Amount:   5000,
		},
	}

	changes := computeBalanceChanges(tx)
	require.Len(t, changes, 2)

	sender := findChange(t, changes, "SENDER", 0)
	assert.Equal(t, int64(-6000), sender.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleSender}, sender.Roles)

	receiver := findChange(t, changes, "RECEIVER", 0)
	assert.Equal(t, int64(5000), receiver.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleReceiver}, receiver.Roles)

	// everything the sender loses beyond the fee arrives at the receiver
	assert.Equal(t, int64(-1000), assetSum(changes, 0))
}

func TestComputeBalanceChanges_PaymentWithClose(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypePayment,
		Sender: "SENDER",
		Fee:    1000,
		Payment: &PaymentFields{
			Receiver:         "RECEIVER",
			Amount:           5000,
			CloseRemainderTo: "CLOSE",
			CloseAmount:      300,
		},
	}

	changes := computeBalanceChanges(tx)

	assert.Equal(t, int64(-6300), findChange(t, changes, "SENDER", 0).Amount)
	assert.Equal(t, int64(5000), findChange(t, changes, "RECEIVER", 0).Amount)

	closeTo := findChange(t, changes, "CLOSE", 0)
	assert.Equal(t, int64(300), closeTo.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleCloseTo}, closeTo.Roles)
}

func TestComputeBalanceChanges_SelfPaymentCoalesces(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypePayment,
		Sender: "SELF",
		Fee:    1000,
		Payment: &PaymentFields{
			Receiver: "SELF",
			Amount:   5000,
		},
	}

	changes := computeBalanceChanges(tx)
	require.Len(t, changes, 1)

	self := changes[0]
	assert.Equal(t, "SELF", self.Address)
	assert.Equal(t, int64(-1000), self.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleSender, RoleReceiver}, self.Roles)
}

func TestComputeBalanceChanges_AssetTransferClawback(t *testing.T) {
	t.Parallel()

	// the asset sender, not the signing sender, loses the asset; the fee
	// still belongs to the signer
	tx := &Transaction{
		Type:   TxTypeAssetTransfer,
		Sender: "CLAWBACK",
		Fee:    1000,
		AssetTransfer: &AssetTransferFields{
			AssetID:     77,
			Amount:      500,
			Receiver:    "RECEIVER",
			AssetSender: "VICTIM",
		},
	}

	changes := computeBalanceChanges(tx)

	assert.Equal(t, int64(-1000), findChange(t, changes, "CLAWBACK", 0).Amount)
	assert.Equal(t, int64(-500), findChange(t, changes, "VICTIM", 77).Amount)
	assert.Equal(t, int64(500), findChange(t, changes, "RECEIVER", 77).Amount)
	assert.Equal(t, int64(0), assetSum(changes, 77))
}

func TestComputeBalanceChanges_AssetCreate(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypeAssetConfig,
		Sender: "CREATOR",
		Fee:    1000,
		AssetConfig: &AssetConfigFields{
			CreatedAssetID: 555,
			Params:         &AssetParams{Total: 1_000_000},
		},
	}

	changes := computeBalanceChanges(tx)

	created := findChange(t, changes, "CREATOR", 555)
	assert.Equal(t, int64(1_000_000), created.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleAssetCreator}, created.Roles)
}

func TestComputeBalanceChanges_AssetDestroy(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypeAssetConfig,
		Sender: "MANAGER",
		Fee:    1000,
		AssetConfig: &AssetConfigFields{
			AssetID: 555,
		},
	}

	changes := computeBalanceChanges(tx)

	// the destroy entry survives despite its zero amount
	destroyed := findChange(t, changes, "MANAGER", 555)
	assert.Equal(t, int64(0), destroyed.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleAssetDestroyer}, destroyed.Roles)
}

func TestComputeBalanceChanges_FeeOnlyTypes(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypeKeyReg,
		Sender: "VALIDATOR",
		Fee:    1000,
		KeyReg: &KeyRegFields{},
	}

	changes := computeBalanceChanges(tx)
	require.Len(t, changes, 1)
	assert.Equal(t, int64(-1000), changes[0].Amount)
}

func TestComputeBalanceChanges_InnerMerge(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:            TxTypeApplicationCall,
		Sender:          "CALLER",
		Fee:             1000,
		ApplicationCall: &ApplicationCallFields{ApplicationID: 10},
		InnerTxns: []*Transaction{
			{
				Type:   TxTypePayment,
				Sender: "APP_ADDR",
				Payment: &PaymentFields{
					Receiver: "CALLER",
					Amount:   250,
				},
			},
		},
	}

	enrichTransaction(tx, nil)

	// the inner transaction carries its own changes
	inner := tx.InnerTxns[0].BalanceChanges
	assert.Equal(t, int64(-250), findChange(t, inner, "APP_ADDR", 0).Amount)

	// the parent merges them: caller pays the fee but receives 250 back
	caller := findChange(t, tx.BalanceChanges, "CALLER", 0)
	assert.Equal(t, int64(-750), caller.Amount)
	assert.Equal(t, []BalanceChangeRole{RoleSender, RoleReceiver}, caller.Roles)

	assert.Equal(t, int64(-250), findChange(t, tx.BalanceChanges, "APP_ADDR", 0).Amount)

	// conservation: the whole tree nets to minus the fees
	assert.Equal(t, int64(-1000), assetSum(tx.BalanceChanges, 0))
}

func TestComputeBalanceChanges_StableOrder(t *testing.T) {
	t.Parallel()

	tx := &Transaction{
		Type:   TxTypePayment,
		Sender: "B_SENDER",
		Fee:    10,
		Payment: &PaymentFields{
			Receiver: "A_RECEIVER",
			Amount:   100,
		},
	}

	first := computeBalanceChanges(tx)
	second := computeBalanceChanges(tx)

	require.Equal(t, first, second)
	assert.Equal(t, "A_RECEIVER", first[0].Address)
	assert.Equal(t, "B_SENDER", first[1].Address)
}
