package subscriber

import (
	"crypto/sha512"
	"encoding/base32"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// TxType is the transaction type vocabulary used on the wire.
type TxType string

const (
	TxTypePayment         TxType = "pay"
	TxTypeAssetTransfer   TxType = "axfer"
	TxTypeAssetConfig     TxType = "acfg"
	TxTypeApplicationCall TxType = "appl"
	TxTypeKeyReg          TxType = "keyreg"
	TxTypeAssetFreeze     TxType = "afrz"
)

// OnCompletion is the application call completion action
type OnCompletion string

const (
	OnCompletionNoOp     OnCompletion = "noop"
	OnCompletionOptIn    OnCompletion = "optin"
	OnCompletionCloseOut OnCompletion = "closeout"
	OnCompletionClear    OnCompletion = "clear"
	OnCompletionUpdate   OnCompletion = "update"
	OnCompletionDelete   OnCompletion = "delete"
)

var onCompletionByWireValue = []OnCompletion{
	OnCompletionNoOp, OnCompletionOptIn, OnCompletionCloseOut,
	OnCompletionClear, OnCompletionUpdate, OnCompletionDelete,
}

// OnCompletionFromWire maps the numeric apan value to its name. Unknown values
// fall back to noop, the wire default.
func OnCompletionFromWire(value uint64) OnCompletion {
	if value < uint64(len(onCompletionByWireValue)) {
		return onCompletionByWireValue[value]
	}

	return OnCompletionNoOp
}

// BalanceChangeRole describes how an address participated in a balance change
type BalanceChangeRole string

const (
	RoleSender         BalanceChangeRole = "Sender"
	RoleReceiver       BalanceChangeRole = "Receiver"
	RoleCloseTo        BalanceChangeRole = "CloseTo"
	RoleAssetCreator   BalanceChangeRole = "AssetCreator"
	RoleAssetDestroyer BalanceChangeRole = "AssetDestroyer"
)

// BalanceChange is a synthesized signed delta for one (address, asset) pair.
// AssetID 0 denotes the native asset; for it the amount includes fees.
type BalanceChange struct {
	Address string              `json:"address"`
	AssetID uint64              `json:"asset-id"`
	Amount  int64               `json:"amount"`
	Roles   []BalanceChangeRole `json:"roles"`
}

// HasRole returns true if the change carries the given role
func (bc BalanceChange) HasRole(role BalanceChangeRole) bool {
	for _, r := range bc.Roles {
		if r == role {
			return true
		}
	}

	return false
}

// Arc28Event is a decoded application log entry
type Arc28Event struct {
	GroupName string                 `json:"group-name"`
	EventName string                 `json:"event-name"`
	Signature string                 `json:"signature"`
	Args      map[string]interface{} `json:"args"`
}

// Transaction is the canonical per-transaction record the engine produces and
// evaluates filters on. Field names follow the long-form upstream naming.
type Transaction struct {
	ID               string `json:"id"`
	Type             TxType `json:"tx-type"`
	Sender           string `json:"sender"`
	Fee              uint64 `json:"fee"`
	FirstValid       uint64 `json:"first-valid"`
	LastValid        uint64 `json:"last-valid"`
	ConfirmedRound   uint64 `json:"confirmed-round"`
	RoundTime        int64  `json:"round-time"`
	IntraRoundOffset uint64 `json:"intra-round-offset"`
	GenesisID        string `json:"genesis-id,omitempty"`
	GenesisHash      []byte `json:"genesis-hash,omitempty"`
	Group            []byte `json:"group,omitempty"`
	Lease            []byte `json:"lease,omitempty"`
	Note             []byte `json:"note,omitempty"`
	RekeyTo          string `json:"rekey-to,omitempty"`

	Payment         *PaymentFields         `json:"payment-transaction,omitempty"`
	AssetTransfer   *AssetTransferFields   `json:"asset-transfer-transaction,omitempty"`
	AssetConfig     *AssetConfigFields     `json:"asset-config-transaction,omitempty"`
	ApplicationCall *ApplicationCallFields `json:"application-transaction,omitempty"`
	KeyReg          *KeyRegFields          `json:"keyreg-transaction,omitempty"`
	AssetFreeze     *AssetFreezeFields     `json:"asset-freeze-transaction,omitempty"`

	InnerTxns []*Transaction `json:"inner-txns,omitempty"`

	// synthesized during enrichment, never received from upstream
	BalanceChanges []BalanceChange `json:"balance-changes,omitempty"`
	Arc28Events    []Arc28Event    `json:"arc28-events,omitempty"`
}

type PaymentFields struct {
	Receiver         string `json:"receiver"`
	Amount           uint64 `json:"amount"`
	CloseRemainderTo string `json:"close-remainder-to,omitempty"`
	CloseAmount      uint64 `json:"close-amount,omitempty"`
}

type AssetTransferFields struct {
	AssetID     uint64 `json:"asset-id"`
	Amount      uint64 `json:"amount"`
	Receiver    string `json:"receiver"`
	AssetSender string `json:"sender,omitempty"`
	CloseTo     string `json:"close-to,omitempty"`
	CloseAmount uint64 `json:"close-amount,omitempty"`
}

type AssetConfigFields struct {
	AssetID uint64       `json:"asset-id,omitempty"`
	Params  *AssetParams `json:"params,omitempty"`
	// set when this transaction created the asset
	CreatedAssetID uint64 `json:"created-asset-index,omitempty"`
}

type AssetParams struct {
	Total         uint64 `json:"total"`
	Decimals      uint32 `json:"decimals"`
	DefaultFrozen bool   `json:"default-frozen,omitempty"`
	UnitName      string `json:"unit-name,omitempty"`
	Name          string `json:"name,omitempty"`
	URL           string `json:"url,omitempty"`
	MetadataHash  []byte `json:"metadata-hash,omitempty"`
	Manager       string `json:"manager,omitempty"`
	Reserve       string `json:"reserve,omitempty"`
	Freeze        string `json:"freeze,omitempty"`
	Clawback      string `json:"clawback,omitempty"`
}

type ApplicationCallFields struct {
	ApplicationID     uint64       `json:"application-id"`
	OnCompletion      OnCompletion `json:"on-completion"`
	Args              [][]byte     `json:"application-args,omitempty"`
	Accounts          []string     `json:"accounts,omitempty"`
	ForeignApps       []uint64     `json:"foreign-apps,omitempty"`
	ForeignAssets     []uint64     `json:"foreign-assets,omitempty"`
	ApprovalProgram   []byte       `json:"approval-program,omitempty"`
	ClearStateProgram []byte       `json:"clear-state-program,omitempty"`
	GlobalStateSchema *StateSchema `json:"global-state-schema,omitempty"`
	LocalStateSchema  *StateSchema `json:"local-state-schema,omitempty"`
	ExtraProgramPages uint32       `json:"extra-program-pages,omitempty"`
	// set when this transaction created the application
	CreatedApplicationID uint64 `json:"created-application-index,omitempty"`
	// base64 encoded application log entries
	Logs             []string              `json:"logs,omitempty"`
	GlobalStateDelta map[string]StateDelta `json:"global-state-delta,omitempty"`
	LocalStateDelta  []AccountStateDelta   `json:"local-state-delta,omitempty"`
}

type StateSchema struct {
	NumUints      uint64 `json:"num-uint"`
	NumByteSlices uint64 `json:"num-byte-slice"`
}

type StateDelta struct {
	Action uint64 `json:"action"`
	Bytes  []byte `json:"bytes,omitempty"`
	Uint   uint64 `json:"uint,omitempty"`
}

type AccountStateDelta struct {
	Address string                `json:"address"`
	Delta   map[string]StateDelta `json:"delta"`
}

type KeyRegFields struct {
	VoteKey          []byte `json:"vote-participation-key,omitempty"`
	SelectionKey     []byte `json:"selection-participation-key,omitempty"`
	VoteFirst        uint64 `json:"vote-first-valid,omitempty"`
	VoteLast         uint64 `json:"vote-last-valid,omitempty"`
	VoteKeyDilution  uint64 `json:"vote-key-dilution,omitempty"`
	NonParticipation bool   `json:"non-participation,omitempty"`
}

type AssetFreezeFields struct {
	AssetID   uint64 `json:"asset-id"`
	Address   string `json:"address"`
	NewFrozen bool   `json:"new-freeze-status"`
}

// Amount returns the native or asset amount moved by the transaction and
// whether it carries one at all
func (tx *Transaction) Amount() (uint64, bool) {
	switch {
	case tx.Payment != nil:
		return tx.Payment.Amount, true
	case tx.AssetTransfer != nil:
		return tx.AssetTransfer.Amount, true
	default:
		return 0, false
	}
}

// Receiver returns the receiving address for transaction types that have one
func (tx *Transaction) Receiver() (string, bool) {
	switch {
	case tx.Payment != nil:
		return tx.Payment.Receiver, true
	case tx.AssetTransfer != nil:
		return tx.AssetTransfer.Receiver, true
	default:
		return "", false
	}
}

// RoundRange is an inclusive closed interval of rounds. The zero value is
// the empty range.
type RoundRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

func (rr RoundRange) IsEmpty() bool {
	return rr.From == 0 && rr.To == 0 || rr.To < rr.From
}

// Len returns the number of rounds covered by the range
func (rr RoundRange) Len() uint64 {
	if rr.IsEmpty() {
		return 0
	}

	return rr.To - rr.From + 1
}

func (rr RoundRange) String() string {
	if rr.IsEmpty() {
		return "[]"
	}

	return fmt.Sprintf("[%d, %d]", rr.From, rr.To)
}

// NodeStatus is the block source status report
type NodeStatus struct {
	LastRound                 uint64 `json:"last-round"`
	TimeSinceLastRound        int64  `json:"time-since-last-round"`
	CatchupTime               int64  `json:"catchup-time"`
	LastVersion               string `json:"last-version"`
	NextVersion               string `json:"next-version,omitempty"`
	NextVersionRound          uint64 `json:"next-version-round,omitempty"`
	NextVersionSupported      bool   `json:"next-version-supported,omitempty"`
	StoppedAtUnsupportedRound bool   `json:"stopped-at-unsupported-round,omitempty"`
}

// AddressRole narrows which side of a transaction an address pre-filter
// applies to on the history source
type AddressRole string

const (
	AddressRoleSender       AddressRole = "sender"
	AddressRoleReceiver     AddressRole = "receiver"
	AddressRoleFreezeTarget AddressRole = "freeze-target"
)

// TransactionSearchParams is the coarse pre-filter the history source accepts.
// Every field is a necessary condition only; the full predicate runs after.
type TransactionSearchParams struct {
	MinRound            uint64      `json:"min-round,omitempty"`
	MaxRound            uint64      `json:"max-round,omitempty"`
	Address             string      `json:"address,omitempty"`
	AddressRole         AddressRole `json:"address-role,omitempty"`
	TxType              TxType      `json:"tx-type,omitempty"`
	AssetID             uint64      `json:"asset-id,omitempty"`
	ApplicationID       uint64      `json:"application-id,omitempty"`
	NotePrefix          []byte      `json:"note-prefix,omitempty"`
	CurrencyGreaterThan *uint64     `json:"currency-greater-than,omitempty"`
	CurrencyLessThan    *uint64     `json:"currency-less-than,omitempty"`
	Limit               uint64      `json:"limit,omitempty"`
	NextToken           string      `json:"next,omitempty"`
}

// TransactionSearchResult is one page of a history source search
type TransactionSearchResult struct {
	CurrentRound uint64         `json:"current-round"`
	NextToken    string         `json:"next-token,omitempty"`
	Transactions []*Transaction `json:"transactions"`
}

// Block is the raw block structure produced by the block source, with the
// compact type-qualified field naming of the node API.
type Block struct {
	Round        uint64             `json:"rnd"`
	Timestamp    int64              `json:"ts"`
	GenesisID    string             `json:"gen"`
	GenesisHash  []byte             `json:"gh"`
	PreviousHash []byte             `json:"prev,omitempty"`
	Seed         []byte             `json:"seed,omitempty"`
	TxnCounter   uint64             `json:"tc,omitempty"`
	Transactions []SignedTxnInBlock `json:"txns,omitempty"`
}

// SignedTxnInBlock is a signed transaction plus its apply data, as it sits
// inside a raw block
type SignedTxnInBlock struct {
	Txn RawTransaction `json:"txn"`
	Sig []byte         `json:"sig,omitempty"`

	// precomputed transaction id, when the source supplies one
	TxID string `json:"-"`

	// apply data
	ClosingAmount        uint64     `json:"camt,omitempty"`
	AssetClosingAmount   uint64     `json:"aca,omitempty"`
	CreatedAssetID       uint64     `json:"caid,omitempty"`
	CreatedApplicationID uint64     `json:"apid,omitempty"`
	EvalDelta            *EvalDelta `json:"dt,omitempty"`
}

// EvalDelta carries the side effects of an application call
type EvalDelta struct {
	GlobalDelta map[string]StateDelta            `json:"gd,omitempty"`
	LocalDeltas map[string]map[string]StateDelta `json:"ld,omitempty"`
	Logs        []string                         `json:"lg,omitempty"`
	InnerTxns   []SignedTxnInBlock               `json:"itx,omitempty"`
}

// RawTransaction is a transaction body with the compact field naming of the
// node API
type RawTransaction struct {
	Type        TxType `json:"type"`
	Sender      string `json:"snd"`
	Fee         uint64 `json:"fee,omitempty"`
	FirstValid  uint64 `json:"fv,omitempty"`
	LastValid   uint64 `json:"lv,omitempty"`
	GenesisID   string `json:"gen,omitempty"`
	GenesisHash []byte `json:"gh,omitempty"`
	Group       []byte `json:"grp,omitempty"`
	Lease       []byte `json:"lx,omitempty"`
	Note        []byte `json:"note,omitempty"`
	RekeyTo     string `json:"rekey,omitempty"`

	// pay
	Receiver         string `json:"rcv,omitempty"`
	Amount           uint64 `json:"amt,omitempty"`
	CloseRemainderTo string `json:"close,omitempty"`

	// axfer
	XferAsset     uint64 `json:"xaid,omitempty"`
	AssetAmount   uint64 `json:"aamt,omitempty"`
	AssetReceiver string `json:"arcv,omitempty"`
	AssetSender   string `json:"asnd,omitempty"`
	AssetCloseTo  string `json:"aclose,omitempty"`

	// acfg
	ConfigAsset uint64          `json:"caid,omitempty"`
	AssetParams *RawAssetParams `json:"apar,omitempty"`

	// appl
	ApplicationID     uint64          `json:"apid,omitempty"`
	OnCompletion      uint64          `json:"apan,omitempty"`
	ApplicationArgs   [][]byte        `json:"apaa,omitempty"`
	Accounts          []string        `json:"apat,omitempty"`
	ForeignApps       []uint64        `json:"apfa,omitempty"`
	ForeignAssets     []uint64        `json:"apas,omitempty"`
	ApprovalProgram   []byte          `json:"apap,omitempty"`
	ClearStateProgram []byte          `json:"apsu,omitempty"`
	GlobalStateSchema *RawStateSchema `json:"apgs,omitempty"`
	LocalStateSchema  *RawStateSchema `json:"apls,omitempty"`
	ExtraProgramPages uint32          `json:"apep,omitempty"`

	// keyreg
	VoteKey          []byte `json:"votekey,omitempty"`
	SelectionKey     []byte `json:"selkey,omitempty"`
	VoteFirst        uint64 `json:"votefst,omitempty"`
	VoteLast         uint64 `json:"votelst,omitempty"`
	VoteKeyDilution  uint64 `json:"votekd,omitempty"`
	NonParticipation bool   `json:"nonpart,omitempty"`

	// afrz
	FreezeAsset   uint64 `json:"faid,omitempty"`
	FreezeAddress string `json:"fadd,omitempty"`
	AssetFrozen   bool   `json:"afrz,omitempty"`
}

type RawAssetParams struct {
	Total         uint64 `json:"t,omitempty"`
	Decimals      uint32 `json:"dc,omitempty"`
	DefaultFrozen bool   `json:"df,omitempty"`
	UnitName      string `json:"un,omitempty"`
	Name          string `json:"an,omitempty"`
	URL           string `json:"au,omitempty"`
	MetadataHash  []byte `json:"am,omitempty"`
	Manager       string `json:"m,omitempty"`
	Reserve       string `json:"r,omitempty"`
	Freeze        string `json:"f,omitempty"`
	Clawback      string `json:"c,omitempty"`
}

type RawStateSchema struct {
	NumUints      uint64 `json:"nui,omitempty"`
	NumByteSlices uint64 `json:"nbs,omitempty"`
}

var txIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var canonicalEncMode cbor.EncMode

func init() {
	var err error

	canonicalEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// ComputeTxID derives a deterministic transaction id from a stable canonical
// serialization of the transaction body (stxn.Txn). The id is the unpadded base32
// encoding of the SHA-512/256 digest of the core deterministic CBOR encoding.
func ComputeTxID(stxn *SignedTxnInBlock) (string, error) {
	data, err := canonicalEncMode.Marshal(stxn.Txn)
	if err != nil {
		return "", fmt.Errorf("could not serialize transaction: %w", err)
	}

	digest := sha512.Sum512_256(data)

	return txIDEncoding.EncodeToString(digest[:]), nil
}
