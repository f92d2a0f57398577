package inspector

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestIsolationMarksNonPreloadedAccountsCold(t *testing.T) {
	st := newTestStack()
	j, err := st.Backend.ActiveJournal()
	if err != nil {
		t.Fatalf("ActiveJournal: %v", err)
	}
	sender := common.HexToAddress("0x01")
	other := common.HexToAddress("0x02")
	j.Account(sender)
	j.Account(other)
	j.SetCold(sender, false)
	j.SetCold(other, false)

	frame, err := st.BeginIsolation(context.Background(), sender, 100_000, false, sender)
	if err != nil {
		t.Fatalf("BeginIsolation: %v", err)
	}
	if j.IsCold(sender) {
		t.Fatal("expected preloaded sender to stay warm")
	}
	if !j.IsCold(other) {
		t.Fatal("expected non-preloaded account to be marked cold")
	}

	if err := st.EndIsolation(frame); err != nil {
		t.Fatalf("EndIsolation: %v", err)
	}
	if j.IsCold(other) {
		t.Fatal("expected merge back to warm every touched account")
	}
	if j.IsCold(sender) {
		t.Fatal("expected preloaded sender restored to its prior warm status")
	}
}

func TestIsolationOverridesEnvAndComputesGasLimit(t *testing.T) {
	st := newTestStack()
	env := st.Backend.Env()
	env.GasLimit = 1_000_000
	env.BaseFee.SetUint64(7)
	env.TxGasPrice = uint256.NewInt(9)
	originalOrigin := env.TxOrigin

	sender := common.HexToAddress("0x01")
	frame, err := st.BeginIsolation(context.Background(), sender, 500_000, false, sender)
	if err != nil {
		t.Fatalf("BeginIsolation: %v", err)
	}
	if !env.BaseFee.IsZero() {
		t.Fatalf("expected basefee overridden to 0, got %s", env.BaseFee)
	}
	if !env.TxGasPrice.IsZero() {
		t.Fatalf("expected gas price overridden to 0, got %s", env.TxGasPrice)
	}
	if env.TxOrigin != sender {
		t.Fatalf("expected origin overridden to caller, got %s", env.TxOrigin)
	}
	if frame.TxGasLimit != 521_000 {
		t.Fatalf("expected gas limit 521000 (500000+21000), got %d", frame.TxGasLimit)
	}

	if err := st.EndIsolation(frame); err != nil {
		t.Fatalf("EndIsolation: %v", err)
	}
	if env.BaseFee.Uint64() != 7 || env.TxGasPrice.Uint64() != 9 || env.TxOrigin != originalOrigin {
		t.Fatal("expected env restored to its pre-isolation values")
	}
}

func TestIsolationClampsGasLimitToBlockGasLimit(t *testing.T) {
	st := newTestStack()
	env := st.Backend.Env()
	env.GasLimit = 100_000

	sender := common.HexToAddress("0x01")
	frame, err := st.BeginIsolation(context.Background(), sender, 500_000, false, sender)
	if err != nil {
		t.Fatalf("BeginIsolation: %v", err)
	}
	if frame.TxGasLimit != env.GasLimit {
		t.Fatalf("expected gas limit clamped to block gas limit %d, got %d", env.GasLimit, frame.TxGasLimit)
	}
}

func TestIsolationStaticCallSkipsEnvOverride(t *testing.T) {
	st := newTestStack()
	env := st.Backend.Env()
	env.BaseFee.SetUint64(7)

	j, err := st.Backend.ActiveJournal()
	if err != nil {
		t.Fatalf("ActiveJournal: %v", err)
	}
	sender := common.HexToAddress("0x01")
	other := common.HexToAddress("0x02")
	j.Account(sender)
	j.Account(other)
	j.SetCold(sender, false)
	j.SetCold(other, false)

	frame, err := st.BeginIsolation(context.Background(), sender, 500_000, true, sender)
	if err != nil {
		t.Fatalf("BeginIsolation: %v", err)
	}
	if env.BaseFee.Uint64() != 7 {
		t.Fatal("expected a STATICCALL isolation frame to leave env untouched")
	}
	if !j.IsCold(other) {
		t.Fatal("expected non-preloaded account marked cold even for a STATICCALL")
	}
	if frame.TxGasLimit != 0 {
		t.Fatalf("expected no gas limit computed for a STATICCALL frame, got %d", frame.TxGasLimit)
	}
}
