package inspector

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/backend"
)

// IsolationFrame is the bookkeeping spec.md §4.2.1's call-isolation
// procedure needs around a re-entrant sub-transaction: which accounts were
// already warm before the sub-call forced everything else cold, the outer
// env snapshot to restore on return, and the journal depth to restore.
// Actually driving the re-entrant EVM transaction is the external driving
// EVM's job (spec.md §1's "does not implement opcodes" non-goal) — this
// package only prepares and restores the surrounding state.
type IsolationFrame struct {
	preloadCold map[common.Address]bool
	savedEnv    *backend.Env
	savedDepth  int
	staticCall  bool

	// TxGasLimit is the gas limit computed for the synthesized
	// sub-transaction: call.gas_limit + 21000, clamped to the block gas
	// limit unless Stack.DisableBlockGasLimit is set (spec.md §4.2.1). Zero
	// for a STATICCALL frame, which never re-transacts.
	TxGasLimit uint64
}

// BeginIsolation implements spec.md §4.2.1's call-isolation procedure for a
// depth-1 CALL/CREATE/STATICCALL.
//
// For an ordinary call or create, it snapshots the current env, overrides
// basefee and gas price to zero and origin to caller, computes the
// sub-transaction's gas limit, and marks every account and storage slot
// cold except preload (the sender, target, and precompiles) so the
// re-entrant sub-transaction's gas accounting starts from a clean warm set,
// then sets journal depth to 1. The journal itself is not snapshotted or
// cloned: the sub-transaction runs against the live journal.
//
// For a STATICCALL, no sub-transaction is synthesized: per spec.md §4.2.1
// "state is not re-transacted; instead... marked cold before the call so
// gas accounting mirrors an isolated transaction" — only the cold-marking
// happens, with no env override and no depth change.
//
// The caller is responsible for actually driving the re-entrant EVM
// transaction using frame.TxGasLimit and the overridden env; this method
// only prepares that state.
func (st *Stack) BeginIsolation(ctx context.Context, caller common.Address, callGasLimit uint64, isStaticCall bool, preload ...common.Address) (*IsolationFrame, error) {
	j, err := st.Backend.ActiveJournal()
	if err != nil {
		return nil, err
	}
	if db, err := st.Backend.ActiveForkDB(); err == nil {
		keys := make([]backend.BatchKey, len(preload))
		for i, addr := range preload {
			keys[i] = backend.BatchKey{Address: addr}
		}
		db.Prefetch(ctx, keys)
	}

	frame := &IsolationFrame{
		preloadCold: make(map[common.Address]bool, len(preload)),
		staticCall:  isStaticCall,
		savedDepth:  j.Depth,
	}
	for _, addr := range preload {
		frame.preloadCold[addr] = j.IsCold(addr)
	}

	for addr := range j.Accounts() {
		if _, preloaded := frame.preloadCold[addr]; preloaded {
			continue
		}
		j.SetCold(addr, true)
		for slot := range j.StorageMap(addr) {
			j.SetSlotCold(addr, slot, true)
		}
	}
	for _, addr := range preload {
		j.SetCold(addr, false)
	}

	if isStaticCall {
		return frame, nil
	}

	env := st.Backend.Env()
	frame.savedEnv = env.Clone()

	env.BaseFee = uint256.NewInt(0)
	env.TxGasPrice = uint256.NewInt(0)
	env.TxOrigin = caller

	frame.TxGasLimit = callGasLimit + 21000
	if !st.DisableBlockGasLimit && frame.TxGasLimit > env.GasLimit {
		frame.TxGasLimit = env.GasLimit
	}

	j.Depth = 1

	return frame, nil
}

// EndIsolation merges the sub-transaction's journal back into the active
// store: warm-status only ever moves toward warm ("warm-status is
// monotonic", spec.md §4.2.1), restoring each preloaded address to whatever
// it was before BeginIsolation and marking every other touched account
// warm. For a non-static frame it also restores the outer env and journal
// depth BeginIsolation overrode.
func (st *Stack) EndIsolation(frame *IsolationFrame) error {
	j, err := st.Backend.ActiveJournal()
	if err != nil {
		return err
	}
	j.WarmAll(frame.preloadCold)
	for addr, wasCold := range frame.preloadCold {
		j.SetCold(addr, wasCold)
	}
	if frame.savedEnv != nil {
		*st.Backend.Env() = *frame.savedEnv
	}
	j.Depth = frame.savedDepth
	return nil
}
