// Package cheatcodes implements the privileged pseudo-precompile that test
// contracts call to mutate EVM state: block environment, account
// balances/code/nonce, storage, impersonation, mocks, expected reverts and
// emits, and the state-diff recorder (spec.md §4.2). It is the dispatch
// layer the inspector invokes whenever a call targets backend.CheatcodeAddress.
package cheatcodes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Prank is spec.md §3's Prank record: the caller/origin substitution
// installed by prank/startPrank, consumed on the next call (single_call) or
// held until stopPrank.
type Prank struct {
	PrankCaller common.Address
	NewCaller   common.Address
	NewOrigin   *common.Address
	Depth       int
	SingleCall  bool
}

// ExpectedRevertKind distinguishes a plain expectRevert from one raised by
// a nested cheatcode call, which needs an extra processing pass before it
// can be compared against the actual revert (spec.md §3 ExpectedRevert).
type ExpectedRevertKind int

const (
	ExpectedRevertDefault ExpectedRevertKind = iota
	ExpectedRevertCheatcode
)

// ExpectedRevert is spec.md §3's ExpectedRevert record. Reason is nil when
// the test only asserted "something reverts" with no reason check.
type ExpectedRevert struct {
	Reason           []byte
	Depth            uint64
	Kind             ExpectedRevertKind
	PendingProcessing bool
}

// ExpectedEmit is spec.md §3's ExpectedEmit record: a queued LOG the test
// expects, matched topic-by-topic and data-wise through the supplied masks.
type ExpectedEmit struct {
	TopicsMask [4]bool // which of up to 4 topics (including the event signature) are checked
	Topics     [4]common.Hash
	DataMask   bool // whether Data must match exactly
	Data       []byte
	Emitter    common.Address
	Depth      int
	Found      bool
}

// ExpectedCall is one entry of spec.md §3's expected-call map: a calldata
// prefix registered against a target, with optional value/gas constraints
// and a running count of observed matches.
type ExpectedCall struct {
	Target      common.Address
	CalldataPfx []byte
	Value       *uint256.Int // nil: unconstrained
	Gas         *uint64      // nil: unconstrained
	MinGas      *uint64      // nil: unconstrained
	Count       uint64
	ActualCount uint64
}

// MockedCall is one entry of spec.md §3's mocked-calls map: a
// (target, calldata, value?) match that short-circuits execution with a
// stored return value.
type MockedCall struct {
	Target     common.Address
	Calldata   []byte // exact match when non-nil, else only Selector is checked
	Selector   [4]byte
	HasValue   bool
	Value      *uint256.Int
	ReturnData []byte
	Reverts    bool
}

// AccountAccessKind enumerates spec.md §3's AccountAccess.kind variants.
type AccountAccessKind int

const (
	AccessCall AccountAccessKind = iota
	AccessStaticCall
	AccessDelegateCall
	AccessCallCode
	AccessCreate
	AccessSelfDestruct
	AccessBalance
	AccessExtcodesize
	AccessExtcodehash
	AccessExtcodecopy
	AccessResume
)

// StorageAccess is spec.md §3's StorageAccess record.
type StorageAccess struct {
	Account       common.Address
	Slot          common.Hash
	IsWrite       bool
	PreviousValue common.Hash
	NewValue      common.Hash
	Reverted      bool
}

// AccountAccess is spec.md §3's AccountAccess record, one frame of the
// recorded state-diff stack.
type AccountAccess struct {
	Accessor       common.Address
	Account        common.Address
	Kind           AccountAccessKind
	Initialized    bool
	OldBalance     *uint256.Int
	NewBalance     *uint256.Int
	Value          *uint256.Int
	Calldata       []byte
	Reverted       bool
	DeployedCode   []byte
	StorageAccesses []StorageAccess
	Depth           int
}

// RecordedLog is one entry captured while `record()` is active, replayed to
// the test through `getRecordedLogs`.
type RecordedLog struct {
	Topics  []common.Hash
	Data    []byte
	Emitter common.Address
}

// MappingSlotInfo is the preimage bookkeeping `getMappingKeyAndParentOf`
// reads: the keccak256(key ++ parentSlot) -> (key, parentSlot) relationship
// recorded whenever an SSTORE immediately follows a KECCAK256 of that shape
// (spec.md §4.2 "Mapping-slot tracking").
type MappingSlotInfo struct {
	Key        common.Hash
	ParentSlot common.Hash
}

// MemRange is one `[dest, dest+size)` window the safe-memory-write
// enforcement permits at a given call depth (spec.md §4.2
// "Safe-memory-write enforcement").
type MemRange struct {
	Start uint64
	End   uint64
}

// DealRecord remembers a `deal` cheatcode's effect, consulted by
// `getStateDiffJson` to report synthetic balance changes that never went
// through the journal's ordinary mutation path.
type DealRecord struct {
	Account    common.Address
	OldBalance *uint256.Int
	NewBalance *uint256.Int
}
