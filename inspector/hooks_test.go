package inspector

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/backend"
	"github.com/soltrace/forge-evm/cheatcodes"
)

func newTestStack() *Stack {
	b := backend.New(nil, nil)
	cheats := cheatcodes.New(nil)
	return New(b, cheats, nil)
}

func TestBeforeCallOpensTraceFrame(t *testing.T) {
	st := newTestStack()
	req := &CallRequest{
		Depth:    0,
		Caller:   backend.DefaultTestSender,
		Target:   common.HexToAddress("0xaa"),
		Value:    uint256.NewInt(0),
		GasLimit: 100000,
	}

	if out, err := st.BeforeCall(req); err != nil || out != nil {
		t.Fatalf("expected ordinary-execution continuation, got out=%#v err=%v", out, err)
	}
	if st.builder.Current() == nil {
		t.Fatal("expected an open trace frame after BeforeCall")
	}
}

func TestBeforeCallDispatchesCheatcode(t *testing.T) {
	st := newTestStack()
	calldata := mustWarpCalldata(t, 555)
	req := &CallRequest{
		Depth:    1,
		Caller:   common.HexToAddress("0x01"),
		Target:   backend.CheatcodeAddress,
		Value:    uint256.NewInt(0),
		Input:    calldata,
		GasLimit: 100000,
	}

	out, err := st.BeforeCall(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || !out.Success {
		t.Fatalf("expected successful cheatcode outcome, got %#v", out)
	}
	if st.Backend.Env().Timestamp != 555 {
		t.Fatalf("expected warp to mutate timestamp, got %d", st.Backend.Env().Timestamp)
	}
}

func TestAfterCallCapturesFirstReverter(t *testing.T) {
	st := newTestStack()
	target := common.HexToAddress("0xbb")
	req := &CallRequest{Depth: 0, Caller: backend.DefaultTestSender, Target: target, Value: uint256.NewInt(0)}
	st.BeforeCall(req)

	st.AfterCall(req, true, []byte("revert reason"), 21000)

	if st.FirstReverter() == nil || *st.FirstReverter() != target {
		t.Fatalf("expected first reverter to be %v, got %v", target, st.FirstReverter())
	}
	if st.LastCallGas() != 21000 {
		t.Fatalf("expected lastCallGas 21000, got %d", st.LastCallGas())
	}
}

func TestAfterCallHonorsExpectedRevert(t *testing.T) {
	st := newTestStack()
	st.Cheats.SetExpectedRevert([]byte("boom"), 0, cheatcodes.ExpectedRevertDefault)

	target := common.HexToAddress("0xcc")
	req := &CallRequest{Depth: 0, Caller: backend.DefaultTestSender, Target: target, Value: uint256.NewInt(0)}
	st.BeforeCall(req)

	out := st.AfterCall(req, true, []byte("boom"), 30000)
	if out == nil || !out.Success {
		t.Fatalf("expected expectRevert to convert the revert into a success outcome, got %#v", out)
	}
	if st.FirstReverter() != nil {
		t.Fatalf("expected no first reverter recorded for an expected revert")
	}
}

func mustWarpCalldata(t *testing.T, ts int64) []byte {
	t.Helper()
	sel := crypto.Keccak256([]byte("warp(uint256)"))[:4]
	uintTyp, err := abi.NewType("uint256", "", nil)
	if err != nil {
		t.Fatalf("abi.NewType: %v", err)
	}
	body, err := abi.Arguments{{Type: uintTyp}}.Pack(big.NewInt(ts))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	out := make([]byte, 4+len(body))
	copy(out, sel)
	copy(out[4:], body)
	return out
}
