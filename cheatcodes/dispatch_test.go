package cheatcodes

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/backend"
)

func mustPack(t *testing.T, sig string, types []string, vals ...interface{}) []byte {
	t.Helper()
	sel := selector(sig)
	body, err := pack(types, vals...)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	out := make([]byte, 4+len(body))
	copy(out, sel[:])
	copy(out[4:], body)
	return out
}

func newTestContext() *Context {
	b := backend.New(nil, nil)
	return &Context{Backend: b}
}

func TestDispatchWarpMutatesEnvTimestamp(t *testing.T) {
	s := New(nil)
	ctx := newTestContext()
	calldata := mustPack(t, "warp(uint256)", []string{"uint256"}, big.NewInt(12345))

	if _, err := Dispatch(s, ctx, calldata); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Backend.Env().Timestamp != 12345 {
		t.Fatalf("expected timestamp 12345, got %d", ctx.Backend.Env().Timestamp)
	}
}

func TestDispatchUnknownSelectorRecognizedUpstream(t *testing.T) {
	s := New(nil)
	ctx := newTestContext()
	calldata := mustPack(t, "ffi(string[])", []string{"string[]"}, []string{"echo"})

	_, err := Dispatch(s, ctx, calldata)
	if err == nil {
		t.Fatal("expected error for recognized-but-unimplemented cheatcode")
	}
	uerr, ok := err.(*UnsupportedCheatcodeError)
	if !ok {
		t.Fatalf("expected *UnsupportedCheatcodeError, got %T", err)
	}
	if !uerr.Supported {
		t.Fatalf("expected Supported=true for a recognized upstream signature")
	}
}

func TestDispatchTrulyUnknownSelector(t *testing.T) {
	s := New(nil)
	ctx := newTestContext()
	calldata := []byte{0xde, 0xad, 0xbe, 0xef}

	_, err := Dispatch(s, ctx, calldata)
	uerr, ok := err.(*UnsupportedCheatcodeError)
	if !ok {
		t.Fatalf("expected *UnsupportedCheatcodeError, got %T", err)
	}
	if uerr.Supported {
		t.Fatalf("expected Supported=false for a wholly unknown selector")
	}
}

func TestEncodeErrorRoundTrips(t *testing.T) {
	encoded := EncodeError("insufficient balance")
	if len(encoded) < 4 {
		t.Fatalf("expected at least a selector, got %d bytes", len(encoded))
	}
	typ, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatalf("abi.NewType: %v", err)
	}
	args := abi.Arguments{{Type: typ}}
	vals, err := args.Unpack(encoded[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if vals[0].(string) != "insufficient balance" {
		t.Fatalf("expected round-tripped message, got %q", vals[0])
	}
}

func TestDispatchDealMutatesBalance(t *testing.T) {
	s := New(nil)
	ctx := newTestContext()
	addr := common.HexToAddress("0xaa")
	calldata := mustPack(t, "deal(address,uint256)", []string{"address", "uint256"},
		addr, big.NewInt(1_000_000))

	if _, err := Dispatch(s, ctx, calldata); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Deals()) != 1 {
		t.Fatalf("expected one deal recorded, got %d", len(s.Deals()))
	}
	j, err := ctx.Backend.ActiveJournal()
	if err != nil {
		t.Fatalf("ActiveJournal: %v", err)
	}
	if got := j.Account(addr).Balance.Uint64(); got != 1_000_000 {
		t.Fatalf("expected balance 1000000, got %d", got)
	}
}
