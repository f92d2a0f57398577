// Package inspector drives the per-opcode and per-call side effects a test
// execution needs: cheatcode dispatch, nested-trace collection, coverage,
// revert diagnosis, and call isolation (spec.md §4.2). The driving EVM
// itself is an external collaborator (spec.md §1 Non-goals); this package
// is the fixed-order fan-out it calls through on every step/call/create,
// the way foundry's own Inspector composes its sub-inspectors. It has no
// LOG hook: logs are neither captured nor matched against expected emits
// here.
package inspector

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/backend"
	"github.com/soltrace/forge-evm/cheatcodes"
	corevm "github.com/soltrace/forge-evm/core/vm"
	"github.com/soltrace/forge-evm/trace"
)

// Stack is the inspector composition, in the order fuzzer -> tracer ->
// coverage (line/edge) -> cheatcodes -> revert diagnostic; it has no log
// collector stage. The fuzzer slot is an external collaborator (not part of
// this core) and is represented only by Stack.Fuzzer, left nil unless
// the host wires one in.
type Stack struct {
	Backend *backend.Backend
	Cheats  *cheatcodes.State
	FS      cheatcodes.FileSystem

	Coverage *Coverage

	// Hardfork gates hardfork-specific cheatcodes (blobhashes, blobBaseFee)
	// the way spec.md §4.2's dispatch table does per-handler.
	Hardfork corevm.Hardfork

	// IsolationEnabled records whether the host runs top-level calls/creates
	// through BeginIsolation/EndIsolation (spec.md §4.2.1); nothing in Stack
	// reads it.
	IsolationEnabled bool

	// DisableBlockGasLimit, when set, skips clamping an isolated
	// sub-transaction's computed gas limit to the block gas limit
	// (spec.md §4.2.1 "clamped to block gas limit unless disabled").
	DisableBlockGasLimit bool

	Fuzzer CallHooks // external collaborator; nil unless the host wires one

	builder *traceBuilder

	firstReverter *common.Address
	lastCallGas   uint64
	rootReverted  bool
}

// New constructs an inspector Stack against a backend and a fresh
// per-test cheatcodes.State. fs may be nil if filesystem cheatcodes are not
// permitted for this test run.
func New(b *backend.Backend, cheats *cheatcodes.State, fs cheatcodes.FileSystem) *Stack {
	return &Stack{
		Backend:  b,
		Cheats:   cheats,
		FS:       fs,
		Coverage: NewCoverage(),
		builder:  newTraceBuilder(),
	}
}

// Trace returns the nested-call trace tree built so far, ready for
// inferrer.BeforeTracingCallMessage / AfterTracing or further wrapping in a
// trace.SparsedTraceArena.
func (st *Stack) Trace() *trace.Node { return st.builder.root }

// LastCallGas returns the gas used by the most recently completed call,
// spec.md §4.2 "Record the call's gas for lastCallGas."
func (st *Stack) LastCallGas() uint64 { return st.lastCallGas }

// FirstReverter returns the address of the first call in this test that
// reverted, or nil if none has yet (spec.md §4.2 "Capture first reverter
// address for diagnostics").
func (st *Stack) FirstReverter() *common.Address { return st.firstReverter }
