package backend

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestLoadAllocsWritesBalanceNonceCodeAndStorage(t *testing.T) {
	b := New(nil, nil)
	addr := common.HexToAddress("0xaaaa")
	slot := common.HexToHash("0x1")
	val := common.HexToHash("0x2a")

	err := b.LoadAllocs(map[common.Address]GenesisAccount{
		addr: {
			Balance: uint256.NewInt(1000),
			Nonce:   7,
			Code:    []byte{0x60, 0x00},
			Storage: map[common.Hash]common.Hash{slot: val},
		},
	})
	if err != nil {
		t.Fatalf("LoadAllocs: %v", err)
	}

	j, err := b.ActiveJournal()
	if err != nil {
		t.Fatalf("ActiveJournal: %v", err)
	}
	acc := j.Account(addr)
	if acc.Balance.Uint64() != 1000 {
		t.Fatalf("expected balance 1000, got %s", acc.Balance)
	}
	if acc.Nonce != 7 {
		t.Fatalf("expected nonce 7, got %d", acc.Nonce)
	}
	if len(acc.Code) != 2 {
		t.Fatalf("expected code to be written, got %v", acc.Code)
	}
	if !acc.Created {
		t.Fatal("expected account marked Created so it survives a roll")
	}
	if got := j.Storage(addr, slot); got != val {
		t.Fatalf("expected storage %s, got %s", val, got)
	}
}

func TestCloneAccountCopiesBalanceNonceCodeAndStorage(t *testing.T) {
	b := New(nil, nil)
	genesis := common.HexToAddress("0xbeef")
	target := common.HexToAddress("0xcafe")
	slot := common.HexToHash("0x3")
	val := common.HexToHash("0x99")

	if err := b.LoadAllocs(map[common.Address]GenesisAccount{
		genesis: {
			Balance: uint256.NewInt(500),
			Nonce:   2,
			Code:    []byte{0x01},
			Storage: map[common.Hash]common.Hash{slot: val},
		},
	}); err != nil {
		t.Fatalf("LoadAllocs: %v", err)
	}

	if err := b.CloneAccount(genesis, target); err != nil {
		t.Fatalf("CloneAccount: %v", err)
	}

	j, _ := b.ActiveJournal()
	dst := j.Account(target)
	if dst.Balance.Uint64() != 500 {
		t.Fatalf("expected cloned balance 500, got %s", dst.Balance)
	}
	if dst.Nonce != 2 {
		t.Fatalf("expected cloned nonce 2, got %d", dst.Nonce)
	}
	if len(dst.Code) != 1 {
		t.Fatalf("expected cloned code, got %v", dst.Code)
	}
	if !dst.Created || !dst.Touched {
		t.Fatal("expected target marked Created and Touched so the clone persists")
	}
	if got := j.Storage(target, slot); got != val {
		t.Fatalf("expected cloned storage %s, got %s", val, got)
	}
}
