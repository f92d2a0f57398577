package inspector

import "github.com/ethereum/go-ethereum/common"

// Coverage is spec.md §4.2's line/edge coverage sub-inspector: a hit
// counter per (codeHash, pc) pair, filled in on every OPCODE hook and
// read back by a coverage report after the test finishes.
type Coverage struct {
	hits map[common.Hash]map[uint64]uint32
}

// NewCoverage returns an empty coverage tracker.
func NewCoverage() *Coverage {
	return &Coverage{hits: make(map[common.Hash]map[uint64]uint32)}
}

// RecordOpcode increments the hit counter for pc within the contract
// identified by codeHash.
func (c *Coverage) RecordOpcode(codeHash common.Hash, pc uint64) {
	perContract, ok := c.hits[codeHash]
	if !ok {
		perContract = make(map[uint64]uint32)
		c.hits[codeHash] = perContract
	}
	perContract[pc]++
}

// Hits returns how many times pc was executed within codeHash.
func (c *Coverage) Hits(codeHash common.Hash, pc uint64) uint32 {
	perContract, ok := c.hits[codeHash]
	if !ok {
		return 0
	}
	return perContract[pc]
}

// Contracts returns every code hash with at least one recorded hit.
func (c *Coverage) Contracts() []common.Hash {
	out := make([]common.Hash, 0, len(c.hits))
	for h := range c.hits {
		out = append(out, h)
	}
	return out
}

// VisitedPCs returns every program counter hit within codeHash.
func (c *Coverage) VisitedPCs(codeHash common.Hash) []uint64 {
	perContract, ok := c.hits[codeHash]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(perContract))
	for pc := range perContract {
		out = append(out, pc)
	}
	return out
}
