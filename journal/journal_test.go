package journal

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestJournaledAccountRevert(t *testing.T) {
	j := New()
	addr := common.HexToAddress("0x01")

	acc := j.JournaledAccount(addr)
	acc.Balance = uint256.NewInt(100)

	cp := j.Checkpoint()

	acc2 := j.JournaledAccount(addr)
	acc2.Balance = uint256.NewInt(200)

	if got := j.Account(addr).Balance.Uint64(); got != 200 {
		t.Fatalf("expected 200 before revert, got %d", got)
	}

	j.RevertTo(cp)

	if got := j.Account(addr).Balance.Uint64(); got != 100 {
		t.Fatalf("expected 100 after revert, got %d", got)
	}
}

func TestStorageRevert(t *testing.T) {
	j := New()
	addr := common.HexToAddress("0x01")
	slot := common.HexToHash("0x01")

	j.SetStorage(addr, slot, common.HexToHash("0x2a"))
	cp := j.Checkpoint()
	j.SetStorage(addr, slot, common.HexToHash("0xff"))

	if j.Storage(addr, slot) != common.HexToHash("0xff") {
		t.Fatalf("expected write to apply")
	}

	j.RevertTo(cp)

	if j.Storage(addr, slot) != common.HexToHash("0x2a") {
		t.Fatalf("expected revert to restore prior value")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	j := New()
	addr := common.HexToAddress("0x01")
	j.JournaledAccount(addr).Balance = uint256.NewInt(5)
	j.SetStorage(addr, common.HexToHash("0x1"), common.HexToHash("0x1"))

	clone := j.Clone()
	j.JournaledAccount(addr).Balance = uint256.NewInt(10)
	j.SetStorage(addr, common.HexToHash("0x1"), common.HexToHash("0x2"))

	if got := clone.Account(addr).Balance.Uint64(); got != 5 {
		t.Fatalf("clone should not observe later mutation, got %d", got)
	}
	if clone.Storage(addr, common.HexToHash("0x1")) != common.HexToHash("0x1") {
		t.Fatalf("clone storage should not observe later mutation")
	}
}

func TestMarkCreatedAndTouched(t *testing.T) {
	j := New()
	addr := common.HexToAddress("0x02")
	j.MarkCreated(addr)

	acc := j.Account(addr)
	if !acc.Created || !acc.Touched {
		t.Fatalf("expected created+touched account")
	}
}

func TestColdWarmTracking(t *testing.T) {
	j := New()
	addr := common.HexToAddress("0x03")
	slot := common.HexToHash("0x1")

	j.SetCold(addr, true)
	j.SetSlotCold(addr, slot, true)

	if !j.IsCold(addr) || !j.IsSlotCold(addr, slot) {
		t.Fatalf("expected cold address/slot")
	}

	j.JournaledAccount(addr)
	j.WarmAll(nil)

	if j.IsCold(addr) {
		t.Fatalf("expected WarmAll to clear cold flag")
	}
}
