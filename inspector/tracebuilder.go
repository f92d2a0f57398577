package inspector

import "github.com/soltrace/forge-evm/trace"

// traceBuilder assembles a trace.Node tree as calls/creates open and close,
// the tracer slot of spec.md §4.2's inspector composition.
type traceBuilder struct {
	root  *trace.Node
	stack []*trace.Node // open frames, root at index 0 once started
}

func newTraceBuilder() *traceBuilder { return &traceBuilder{} }

// Enter opens a new frame as a child of whatever frame is currently open
// (or as the root, for the first call).
func (tb *traceBuilder) Enter(n *trace.Node) {
	if len(tb.stack) == 0 {
		tb.root = n
		tb.stack = append(tb.stack, n)
		return
	}
	parent := tb.stack[len(tb.stack)-1]
	parent.Steps = append(parent.Steps, trace.Step{Child: n})
	tb.stack = append(tb.stack, n)
}

// Exit closes the currently open frame, filling in its outcome.
func (tb *traceBuilder) Exit(success, exitRevert, exitOOG bool, returnData []byte, gasUsed uint64) *trace.Node {
	if len(tb.stack) == 0 {
		return nil
	}
	top := tb.stack[len(tb.stack)-1]
	tb.stack = tb.stack[:len(tb.stack)-1]
	top.Success = success
	top.ExitRevert = exitRevert
	top.ExitOutOfGas = exitOOG
	top.ReturnData = returnData
	top.GasUsed = gasUsed
	return top
}

// Current returns the currently open frame, or nil if no call is open.
func (tb *traceBuilder) Current() *trace.Node {
	if len(tb.stack) == 0 {
		return nil
	}
	return tb.stack[len(tb.stack)-1]
}

// Step records a plain EVM instruction in the currently open frame.
func (tb *traceBuilder) Step(pc uint64, opcode byte) {
	cur := tb.Current()
	if cur == nil {
		return
	}
	cur.Steps = append(cur.Steps, trace.Step{IsEvm: true, PC: pc, Opcode: opcode})
}
