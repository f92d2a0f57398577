package backend

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/journal"
)

func TestDiagnoseRevertReturnsNilWhenNotForking(t *testing.T) {
	b := New(nil, nil)
	if diag := b.DiagnoseRevert(context.Background(), common.HexToAddress("0x1")); diag != nil {
		t.Fatalf("expected nil diagnosis in non-forking mode, got %#v", diag)
	}
}

func TestDiagnoseRevertReturnsNilWithSingleFork(t *testing.T) {
	b := New(nil, nil)
	b.forking = true
	fork := &Fork{ID: ForkID{Endpoint: "https://a.invalid"}, DB: NewForkDB(nil), Journal: journal.New()}
	b.forks = append(b.forks, fork)
	b.localToIndex[0] = 0
	b.active = 0

	if diag := b.DiagnoseRevert(context.Background(), common.HexToAddress("0x1")); diag != nil {
		t.Fatalf("expected nil diagnosis with a single fork, got %#v", diag)
	}
}

func TestDiagnoseRevertClassifiesContractDoesNotExist(t *testing.T) {
	b := New(nil, nil)
	b.forking = true
	forkA := &Fork{ID: ForkID{Endpoint: "https://a.invalid"}, DB: NewForkDB(nil), Journal: journal.New()}
	forkB := &Fork{ID: ForkID{Endpoint: "https://b.invalid"}, DB: NewForkDB(nil), Journal: journal.New()}
	b.forks = append(b.forks, forkA, forkB)
	b.localToIndex[0] = 0
	b.localToIndex[1] = 1
	b.active = 0

	missing := common.HexToAddress("0xdead")
	diag := b.DiagnoseRevert(context.Background(), missing)
	dne, ok := diag.(ContractDoesNotExist)
	if !ok {
		t.Fatalf("expected ContractDoesNotExist, got %#v", diag)
	}
	if dne.Contract != missing {
		t.Fatalf("expected contract %s, got %s", missing, dne.Contract)
	}
}
