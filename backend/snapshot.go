package backend

import "github.com/soltrace/forge-evm/journal"

// SnapshotID identifies a state snapshot, monotonically increasing.
type SnapshotID uint64

// RevertAction selects what happens to the snapshot entry after a revert:
// Keep re-inserts it at the same id (so it can be reverted to again),
// Remove discards it. spec.md §4.1 revert_state: "If action = Keep,
// snapshot is re-inserted at the same id."
type RevertAction int

const (
	RevertActionRemove RevertAction = iota
	RevertActionKeep
)

// StateSnapshot is spec.md's BackendStateSnapshot: a deep clone of the
// active db, journal and env, taken atomically.
type StateSnapshot struct {
	// ActiveForkDB is the cloned ForkDB of whichever store was active
	// (the in-memory db or the selected fork) when the snapshot was taken.
	ActiveForkDB *ForkDB
	Journal      *journal.Inner
	Env          *Env

	// ActiveLocalFork records which fork (if any) was selected, so revert
	// can restore fork selection along with state.
	ActiveLocalFork LocalForkID
	Forking         bool
}
