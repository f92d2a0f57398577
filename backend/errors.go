package backend

import "errors"

// Sentinel errors, one per spec.md §7 "Backend errors" bullet. Matching the
// teacher's style (revm_bridge uses errors.New/fmt.Errorf, never a wrapping
// library), these are plain values joined with fmt.Errorf("...: %w") at the
// call site when extra context is useful.
var (
	ErrUnknownFork       = errors.New("backend: unknown fork id")
	ErrUnknownLocalFork  = errors.New("backend: unknown local fork id")
	ErrUnknownSnapshot   = errors.New("backend: unknown snapshot id")
	ErrMissingAccount    = errors.New("backend: account missing in fork")
	ErrInvalidHeader     = errors.New("backend: invalid http header")
	ErrInvalidDate       = errors.New("backend: invalid initial date")
	ErrInvalidEnvVar     = errors.New("backend: invalid environment variable")
	ErrNoActiveFork      = errors.New("backend: no fork is currently active")
	ErrSnapshotOnceOnly  = errors.New("backend: snapshot already reverted")
	ErrTransactionNotFound = errors.New("backend: transaction not found in block")
)
