package inspector

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCoverageRecordsHitsPerContract(t *testing.T) {
	cov := NewCoverage()
	hashA := common.HexToHash("0xaa")
	hashB := common.HexToHash("0xbb")

	cov.RecordOpcode(hashA, 10)
	cov.RecordOpcode(hashA, 10)
	cov.RecordOpcode(hashB, 20)

	if got := cov.Hits(hashA, 10); got != 2 {
		t.Fatalf("expected 2 hits, got %d", got)
	}
	if got := cov.Hits(hashB, 20); got != 1 {
		t.Fatalf("expected 1 hit, got %d", got)
	}
	if got := cov.Hits(hashA, 999); got != 0 {
		t.Fatalf("expected 0 hits for an unvisited pc, got %d", got)
	}
}

func TestCoverageContractsAndVisitedPCs(t *testing.T) {
	cov := NewCoverage()
	hash := common.HexToHash("0xcc")
	cov.RecordOpcode(hash, 1)
	cov.RecordOpcode(hash, 2)

	contracts := cov.Contracts()
	if len(contracts) != 1 || contracts[0] != hash {
		t.Fatalf("expected one contract %v, got %v", hash, contracts)
	}
	pcs := cov.VisitedPCs(hash)
	if len(pcs) != 2 {
		t.Fatalf("expected 2 visited pcs, got %d", len(pcs))
	}
}
