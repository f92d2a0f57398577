// Package trace implements the nested-call trace tree the inferrer walks
// after execution finishes, plus "ignored range" bookkeeping that hides a
// span of the trace from later analysis without mutating the recorded
// steps themselves. The pauseTracing/resumeTracing cheatcodes do not use it.
package trace

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind discriminates the three message types the inferrer reasons about
// (spec.md's MessageTrace union).
type Kind int

const (
	KindCall Kind = iota
	KindCreate
	KindPrecompile
)

// Node is one frame of the nested trace: a call, a create, or a precompile
// invocation, together with every step taken at that depth.
type Node struct {
	Kind Kind

	From  common.Address
	To    common.Address // zero for Create until the address is known
	Value *uint256.Int
	Input []byte

	GasLimit uint64
	GasUsed  uint64

	IsStaticCall bool
	Depth        int

	Success      bool
	ReturnData   []byte
	ExitRevert   bool
	ExitOutOfGas bool

	// Code/CodeHash identify the executing contract for compiler-metadata
	// lookup during inference; empty for precompiles.
	Code     []byte
	CodeHash common.Hash

	// Steps holds the EVM instructions and nested child frames in execution
	// order; a step with a non-nil Child is a submessage.
	Steps []Step
}

// Step is one entry in Node.Steps: either a plain EVM instruction pointer
// or a nested child frame. Exactly one field is meaningful per variant.
type Step struct {
	IsEvm  bool
	PC     uint64
	Opcode byte

	Child *Node // non-nil when this step is a nested call/create/precompile
}

// LastChild returns the last nested child frame recorded in n's steps, or
// nil if n made no submessages. The inferrer's "last submessage" heuristic
// does not call it; it uses its own lastCallStep helper.
func (n *Node) LastChild() *Node {
	for i := len(n.Steps) - 1; i >= 0; i-- {
		if n.Steps[i].Child != nil {
			return n.Steps[i].Child
		}
	}
	return nil
}

// LastStep returns the final recorded step (EVM instruction or nested
// frame) in n, or the zero Step if n recorded nothing.
func (n *Node) LastStep() (Step, bool) {
	if len(n.Steps) == 0 {
		return Step{}, false
	}
	return n.Steps[len(n.Steps)-1], true
}

// CallSpan identifies one position in a trace by its (node, item)
// coordinates. Ignore takes two of them, a start and an end, to mark a
// span — the unit pauseTracing / resumeTracing operate on.
type CallSpan struct {
	StartNodeIdx int
	StartItemIdx int
}

// SparsedTraceArena is spec.md's arena: the full recorded trace tree plus a
// set of ignored spans that Prune removes before the inferrer ever sees
// them (spec.md §9, ported from original_source/'s pauseTracing/
// resumeTracing bookkeeping).
type SparsedTraceArena struct {
	Root    *Node
	ignored map[CallSpan]CallSpan // span start -> span end
}

// NewSparsedTraceArena wraps root with no ignored spans.
func NewSparsedTraceArena(root *Node) *SparsedTraceArena {
	return &SparsedTraceArena{Root: root, ignored: make(map[CallSpan]CallSpan)}
}

// Ignore records that steps recorded between start and end (inclusive of
// start, exclusive of end) should be pruned before inference. Nothing in
// this module calls Ignore: the pauseTracing/resumeTracing cheatcode
// handlers only toggle cheatcodes.State's tracing-paused flag.
func (a *SparsedTraceArena) Ignore(start, end CallSpan) {
	a.ignored[start] = end
}

// Prune returns a copy of the trace tree with every step inside an ignored
// span removed. The original arena is left untouched so repeated pruning
// with more spans recorded later stays correct.
func (a *SparsedTraceArena) Prune() *Node {
	if len(a.ignored) == 0 {
		return a.Root
	}
	return pruneNode(a.Root, 0, a.ignored)
}

func pruneNode(n *Node, nodeIdx int, ignored map[CallSpan]CallSpan) *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Steps = nil
	for itemIdx, step := range n.Steps {
		span := CallSpan{StartNodeIdx: nodeIdx, StartItemIdx: itemIdx}
		skip := false
		for start, end := range ignored {
			if spanContains(start, end, span) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if step.Child != nil {
			childCopy := pruneNode(step.Child, nodeIdx+1, ignored)
			step.Child = childCopy
		}
		cp.Steps = append(cp.Steps, step)
	}
	return &cp
}

func spanContains(start, end, candidate CallSpan) bool {
	if candidate.StartNodeIdx < start.StartNodeIdx || candidate.StartNodeIdx > end.StartNodeIdx {
		return false
	}
	if candidate.StartNodeIdx == start.StartNodeIdx && candidate.StartItemIdx < start.StartItemIdx {
		return false
	}
	if candidate.StartNodeIdx == end.StartNodeIdx && candidate.StartItemIdx >= end.StartItemIdx {
		return false
	}
	return true
}
