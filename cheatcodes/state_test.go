package cheatcodes

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestPrankSingleCallConsumedAtCallEnd(t *testing.T) {
	s := New(nil)
	caller := common.HexToAddress("0x01")
	newCaller := common.HexToAddress("0x02")
	s.StartPrank(caller, newCaller, nil, 1, true)

	eff, origin, active := s.ApplyPrank(1, caller)
	if !active || eff != newCaller || origin != nil {
		t.Fatalf("expected prank applied at depth 1, got eff=%v active=%v", eff, active)
	}
	s.ConsumePrank(1)
	if s.ActivePrank() != nil {
		t.Fatalf("expected single-call prank consumed after call end")
	}
}

func TestPrankNotAppliedAtOtherDepth(t *testing.T) {
	s := New(nil)
	caller := common.HexToAddress("0x01")
	newCaller := common.HexToAddress("0x02")
	s.StartPrank(caller, newCaller, nil, 2, false)

	eff, _, active := s.ApplyPrank(1, caller)
	if active || eff != caller {
		t.Fatalf("expected prank inactive outside its depth")
	}
}

func TestExpectedRevertMatchesReason(t *testing.T) {
	s := New(nil)
	s.SetExpectedRevert([]byte("boom"), 1, ExpectedRevertDefault)

	applicable, ok, err := s.CheckExpectedRevert(1, true, []byte("boom"))
	if !applicable || !ok || err != nil {
		t.Fatalf("expected match, got applicable=%v ok=%v err=%v", applicable, ok, err)
	}
	if s.ExpectedRevert() != nil {
		t.Fatalf("expected expectation cleared after check")
	}
}

func TestExpectedRevertNoRevertIsFailure(t *testing.T) {
	s := New(nil)
	s.SetExpectedRevert(nil, 0, ExpectedRevertDefault)

	applicable, ok, err := s.CheckExpectedRevert(0, false, nil)
	if !applicable || ok || err == nil {
		t.Fatalf("expected no-revert failure, got ok=%v err=%v", ok, err)
	}
}

func TestExpectEmitMatchesMaskedTopics(t *testing.T) {
	s := New(nil)
	emitter := common.HexToAddress("0xaa")
	s.RegisterExpectedEmit(emitter, [4]bool{true, false, false, false}, true, 0)
	s.SetExpectedEmitContent([4]common.Hash{common.HexToHash("0x01")}, []byte("data"))

	matched := s.MatchEmit(emitter, []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x99")}, []byte("data"), 0)
	if !matched {
		t.Fatalf("expected emit to match on masked topic only")
	}
	if unmet := s.UnmetExpectedEmits(); len(unmet) != 0 {
		t.Fatalf("expected no unmet emits, got %d", len(unmet))
	}
}

func TestExpectCallTracksActualCount(t *testing.T) {
	s := New(nil)
	target := common.HexToAddress("0xbb")
	s.RegisterExpectedCall(target, []byte{0x01, 0x02}, nil, nil, nil, 2)

	s.MatchExpectedCall(target, []byte{0x01, 0x02, 0x03}, nil, 0)
	if unmet := s.UnmetExpectedCalls(); len(unmet) != 1 {
		t.Fatalf("expected one unmet call (count 1 < 2), got %d", len(unmet))
	}
	s.MatchExpectedCall(target, []byte{0x01, 0x02, 0xff}, nil, 0)
	if unmet := s.UnmetExpectedCalls(); len(unmet) != 0 {
		t.Fatalf("expected all expected calls met, got %d unmet", len(unmet))
	}
}

func TestMockCallExactCalldataWinsOverSelectorOnly(t *testing.T) {
	s := New(nil)
	target := common.HexToAddress("0xcc")
	s.RegisterMockCall(target, []byte{0x11, 0x22, 0x33, 0x44}, nil, false, []byte("selector-only"), false)
	exact := []byte{0x11, 0x22, 0x33, 0x44, 0xaa}
	s.RegisterMockCall(target, exact, nil, false, []byte("exact"), false)

	m, ok := s.MatchMockedCall(target, exact, nil)
	if !ok || string(m.ReturnData) != "exact" {
		t.Fatalf("expected exact-calldata mock to win, got %q ok=%v", m.ReturnData, ok)
	}

	other := []byte{0x11, 0x22, 0x33, 0x44, 0xbb}
	m2, ok2 := s.MatchMockedCall(target, other, nil)
	if !ok2 || string(m2.ReturnData) != "selector-only" {
		t.Fatalf("expected selector-only fallback, got %q ok=%v", m2.ReturnData, ok2)
	}
}

func TestAccountAccessFrameMergeMarksReverted(t *testing.T) {
	s := New(nil)
	s.StartRecordingAccesses()
	s.PushAccessFrame()
	s.RecordAccess(AccountAccess{Account: common.HexToAddress("0xdd"), Kind: AccessCall, Value: uint256.NewInt(1)})
	s.PopAccessFrame(true)

	accesses := s.StopRecordingAccesses()
	if len(accesses) != 1 || !accesses[0].Reverted {
		t.Fatalf("expected one reverted access, got %+v", accesses)
	}
}
