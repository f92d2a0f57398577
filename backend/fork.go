package backend

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/soltrace/forge-evm/journal"
	"github.com/soltrace/forge-evm/multifork"
)

// LocalForkID is the test-scoped opaque handle returned to cheatcode
// callers (spec.md §3). It maps 1:1 to a ForkID at any moment; RollFork
// remaps it without disturbing the handle value.
type LocalForkID uint64

// ForkID content-addresses a fork: (endpoint, optional block number).
// Aliased directly to multifork.Key since the two concepts coincide.
type ForkID = multifork.Key

// Fork is one independent EVM state view, spec.md §3: "Each fork has
// independent storage except for persistent accounts."
type Fork struct {
	ID              ForkID
	DB              *ForkDB
	Journal         *journal.Inner
	ForkBlockNumber *uint64
}

// PersistentAccountSet holds addresses whose storage and code survive a
// fork switch. spec.md §3 requires it always contain the cheatcode
// address, the CREATE2 deployer and the default caller.
type PersistentAccountSet struct {
	set mapset.Set[common.Address]
}

// NewPersistentAccountSet returns a set seeded with the three addresses
// spec.md mandates always be present.
func NewPersistentAccountSet() *PersistentAccountSet {
	p := &PersistentAccountSet{set: mapset.NewThreadUnsafeSet[common.Address]()}
	p.set.Add(CheatcodeAddress)
	p.set.Add(Create2Deployer)
	p.set.Add(DefaultTestSender)
	return p
}

func (p *PersistentAccountSet) Add(addr common.Address)      { p.set.Add(addr) }
func (p *PersistentAccountSet) Remove(addr common.Address)   { p.set.Remove(addr) }
func (p *PersistentAccountSet) Contains(addr common.Address) bool { return p.set.Contains(addr) }
func (p *PersistentAccountSet) ToSlice() []common.Address     { return p.set.ToSlice() }
func (p *PersistentAccountSet) Clone() *PersistentAccountSet {
	return &PersistentAccountSet{set: p.set.Clone()}
}

// CheatcodeAccessSet holds addresses permitted to call CheatcodeAddress.
// The inspector consults IsAllowed, which grants every address until
// SetEnforced(true) is called. Backend creates the set with grantAll true
// and does not call SetEnforced when it enters forking mode, so access is
// granted by default in both modes.
type CheatcodeAccessSet struct {
	set     mapset.Set[common.Address]
	grantAll bool
}

// NewCheatcodeAccessSet returns a set that grants every address access
// when grantAll is true (the default, in-memory mode).
func NewCheatcodeAccessSet(grantAll bool) *CheatcodeAccessSet {
	return &CheatcodeAccessSet{set: mapset.NewThreadUnsafeSet[common.Address](), grantAll: grantAll}
}

func (c *CheatcodeAccessSet) Allow(addr common.Address) { c.set.Add(addr) }
func (c *CheatcodeAccessSet) Revoke(addr common.Address) { c.set.Remove(addr) }
func (c *CheatcodeAccessSet) SetEnforced(enforced bool)  { c.grantAll = !enforced }
func (c *CheatcodeAccessSet) IsAllowed(addr common.Address) bool {
	if c.grantAll {
		return true
	}
	return c.set.Contains(addr)
}
