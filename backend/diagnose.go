package backend

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// RevertDiagnostic is spec.md §6's `Option<RevertDiagnostic>` result of
// DiagnoseRevert, modeled the Go way: one interface plus one struct per
// variant instead of a tagged enum.
type RevertDiagnostic interface {
	isRevertDiagnostic()
}

// ContractExistsOnOtherForks reports that callee has code on at least one
// other fork, but not on the fork the call actually ran against — almost
// always a forgotten selectFork before the call.
type ContractExistsOnOtherForks struct {
	Contract    common.Address
	ActiveFork  LocalForkID
	AvailableOn []LocalForkID
}

func (ContractExistsOnOtherForks) isRevertDiagnostic() {}

// ContractDoesNotExist reports that callee has no code on any known fork.
type ContractDoesNotExist struct {
	Contract   common.Address
	Persistent bool
}

func (ContractDoesNotExist) isRevertDiagnostic() {}

func (b *Backend) hasCode(ctx context.Context, f *Fork, addr common.Address) bool {
	if acc, ok := f.Journal.Accounts()[addr]; ok && len(acc.Code) > 0 {
		return true
	}
	acc, err := f.DB.Basic(ctx, addr)
	if err != nil || acc == nil {
		return false
	}
	code, err := f.DB.CodeByHash(ctx, acc.CodeHash, addr)
	return err == nil && len(code) > 0
}

// DiagnoseRevert implements spec.md §4.1 diagnose_revert: when more than one
// fork exists and callee has no code on the active fork, scan every other
// fork for code and classify the miss. Returns nil when there is nothing
// useful to report (single fork, or not forking at all).
func (b *Backend) DiagnoseRevert(ctx context.Context, callee common.Address) RevertDiagnostic {
	if !b.forking || len(b.forks) < 2 {
		return nil
	}
	active, err := b.activeFork()
	if err != nil {
		return nil
	}
	if b.hasCode(ctx, active, callee) {
		return nil
	}

	var availableOn []LocalForkID
	for id, idx := range b.localToIndex {
		if id == b.active {
			continue
		}
		f := b.forks[idx]
		if f == nil {
			continue
		}
		if b.hasCode(ctx, f, callee) {
			availableOn = append(availableOn, id)
		}
	}
	if len(availableOn) > 0 {
		return ContractExistsOnOtherForks{Contract: callee, ActiveFork: b.active, AvailableOn: availableOn}
	}
	return ContractDoesNotExist{Contract: callee, Persistent: b.persistent.Contains(callee)}
}
