package trace

import "testing"

func buildTrace() *Node {
	return &Node{
		Kind: KindCall,
		Steps: []Step{
			{IsEvm: true, PC: 0, Opcode: 0x60},
			{IsEvm: true, PC: 2, Opcode: 0x60},
			{Child: &Node{Kind: KindCall, Steps: []Step{{IsEvm: true, PC: 0, Opcode: 0x00}}}},
			{IsEvm: true, PC: 10, Opcode: 0xf3},
		},
	}
}

func TestLastChildReturnsMostRecentNestedFrame(t *testing.T) {
	root := buildTrace()
	child := root.LastChild()
	if child == nil {
		t.Fatal("expected a last child frame")
	}
	if child.Kind != KindCall {
		t.Fatalf("expected KindCall, got %v", child.Kind)
	}
}

func TestLastStepReturnsFinalRecordedStep(t *testing.T) {
	root := buildTrace()
	step, ok := root.LastStep()
	if !ok {
		t.Fatal("expected a last step")
	}
	if step.PC != 10 || step.Opcode != 0xf3 {
		t.Fatalf("expected final RETURN step, got %+v", step)
	}
}

func TestPruneRemovesIgnoredSpan(t *testing.T) {
	root := buildTrace()
	arena := NewSparsedTraceArena(root)
	arena.Ignore(CallSpan{StartNodeIdx: 0, StartItemIdx: 0}, CallSpan{StartNodeIdx: 0, StartItemIdx: 2})

	pruned := arena.Prune()
	if len(pruned.Steps) != 2 {
		t.Fatalf("expected 2 steps to survive pruning, got %d", len(pruned.Steps))
	}
	if pruned.Steps[0].Child == nil {
		t.Fatalf("expected the nested call step to survive, got %+v", pruned.Steps[0])
	}
}

func TestPruneWithNoIgnoredSpansReturnsOriginal(t *testing.T) {
	root := buildTrace()
	arena := NewSparsedTraceArena(root)
	if arena.Prune() != root {
		t.Fatal("expected Prune to return the original root when nothing is ignored")
	}
}
