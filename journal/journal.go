// Package journal implements the EVM-level journaled state that the
// backend and inspector packages read and mutate during one test
// execution: the live set of touched accounts and storage slots, with
// enough history to support the revert semantics cheatcodes rely on.
package journal

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Account mirrors the account-level fields the EVM and cheatcodes care
// about. It intentionally omits the storage trie — storage lives in
// Inner.storage, keyed by address, so that persistent-account merges can
// operate on it without touching balance/nonce/code.
type Account struct {
	Balance  *uint256.Int
	Nonce    uint64
	Code     []byte
	CodeHash common.Hash

	// Created is set once for the lifetime of the journal when the account
	// was created locally through MarkCreated (LoadAllocs, CloneAccount)
	// rather than loaded from a fork. SelectFork's first-selection strip
	// consults this flag to decide which accounts to keep.
	Created bool
	// Touched marks that the account was loaded or written during this
	// journal's lifetime. RollFork consults it to decide which accounts to
	// preserve across a roll.
	Touched bool
}

func (a *Account) clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Balance != nil {
		cp.Balance = new(uint256.Int).Set(a.Balance)
	}
	if a.Code != nil {
		cp.Code = append([]byte(nil), a.Code...)
	}
	return &cp
}

// Entry is one journal entry: a recorded prior value that a revert can
// restore. present_value (spec.md §3) is always the authoritative read
// value; original_value is only consulted on revert.
type Entry struct {
	Address       common.Address
	Slot          common.Hash // zero Hash for account-level entries
	OriginalValue common.Hash
	IsStorage     bool

	// Account-level original snapshot, valid when IsStorage is false.
	OriginalAccount *Account
}

// Inner is the live journaled state: accounts, storage and a depth counter
// synchronized across fork switches per spec.md §3's "JournalInner.depth is
// synchronized across fork switches by carry-over" invariant.
type Inner struct {
	Depth int

	accounts map[common.Address]*Account
	storage  map[common.Address]map[common.Hash]common.Hash

	// entries is the rollback log: reverting pops entries back to a
	// recorded checkpoint and restores OriginalValue/OriginalAccount.
	entries []Entry

	// cold tracks addresses/slots considered cold for gas-accounting
	// purposes; call isolation (spec.md §4.2.1) manipulates this directly.
	coldAccounts map[common.Address]bool
	coldSlots    map[common.Address]map[common.Hash]bool
}

// New returns an empty journal at depth 0.
func New() *Inner {
	return &Inner{
		accounts:     make(map[common.Address]*Account),
		storage:      make(map[common.Address]map[common.Hash]common.Hash),
		coldAccounts: make(map[common.Address]bool),
		coldSlots:    make(map[common.Address]map[common.Hash]bool),
	}
}

// Account returns the current account record, loading a zero-value one on
// first touch (go-ethereum's StateDB calls this "touch"; we keep the name
// to make the lineage obvious to a geth-familiar reader).
func (j *Inner) Account(addr common.Address) *Account {
	acc, ok := j.accounts[addr]
	if !ok {
		acc = &Account{Balance: new(uint256.Int)}
		j.accounts[addr] = acc
	}
	return acc
}

// HasAccount reports whether addr has ever been touched in this journal.
func (j *Inner) HasAccount(addr common.Address) bool {
	_, ok := j.accounts[addr]
	return ok
}

// SetAccount installs acc verbatim, used when merging persistent-account
// state across fork switches (spec.md §4.1 SelectFork/RollFork).
func (j *Inner) SetAccount(addr common.Address, acc *Account) {
	j.accounts[addr] = acc
}

// JournaledAccount loads-and-touches addr, recording an undo entry with the
// account's current value on every call. Cheatcode handlers
// that mutate balance/nonce/code go through this helper (spec.md §4.2
// "Mutate JournalInner state via helper journaled_account(addr)").
func (j *Inner) JournaledAccount(addr common.Address) *Account {
	acc := j.Account(addr)
	acc.Touched = true
	j.entries = append(j.entries, Entry{
		Address:         addr,
		OriginalAccount: acc.clone(),
	})
	return acc
}

// SetStorage records a storage write. present_value becomes val; the
// journal entry captures the previous value for revert.
func (j *Inner) SetStorage(addr common.Address, slot common.Hash, val common.Hash) {
	slots, ok := j.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		j.storage[addr] = slots
	}
	prev := slots[slot]
	j.entries = append(j.entries, Entry{Address: addr, Slot: slot, OriginalValue: prev, IsStorage: true})
	slots[slot] = val
	j.Account(addr).Touched = true
}

// Storage returns the present value of a storage slot, or the zero hash if
// never written in this journal.
func (j *Inner) Storage(addr common.Address, slot common.Hash) common.Hash {
	if slots, ok := j.storage[addr]; ok {
		return slots[slot]
	}
	return common.Hash{}
}

// StorageMap returns the full per-account storage overlay recorded in this
// journal, used by persistent-account merges.
func (j *Inner) StorageMap(addr common.Address) map[common.Hash]common.Hash {
	return j.storage[addr]
}

// MarkCreated flags addr as locally created and touched, so that both
// SelectFork's first-selection strip (Created) and RollFork's preservation
// rule (Touched) keep it.
func (j *Inner) MarkCreated(addr common.Address) {
	j.Account(addr).Created = true
	j.Account(addr).Touched = true
}

// Checkpoint returns the current journal length, a revert target for
// EnterScope/ExitScope style call-depth bookkeeping.
func (j *Inner) Checkpoint() int { return len(j.entries) }

// RevertTo undoes every entry recorded since checkpoint, restoring
// OriginalValue/OriginalAccount for each, last-writer-wins as the journal
// unwinds in LIFO order (mirrors go-ethereum's journal.revert).
func (j *Inner) RevertTo(checkpoint int) {
	for i := len(j.entries) - 1; i >= checkpoint; i-- {
		e := j.entries[i]
		if e.IsStorage {
			j.storage[e.Address][e.Slot] = e.OriginalValue
			continue
		}
		if e.OriginalAccount == nil {
			delete(j.accounts, e.Address)
		} else {
			j.accounts[e.Address] = e.OriginalAccount
		}
	}
	j.entries = j.entries[:checkpoint]
}

// Clone deep-copies the journal for BackendStateSnapshot (spec.md §3):
// "A snapshot store... must own deep copies... sharing structural copies
// risks aliasing after later mutation" (spec.md §9).
func (j *Inner) Clone() *Inner {
	cp := New()
	cp.Depth = j.Depth
	for addr, acc := range j.accounts {
		cp.accounts[addr] = acc.clone()
	}
	for addr, slots := range j.storage {
		dup := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			dup[k] = v
		}
		cp.storage[addr] = dup
	}
	for addr, cold := range j.coldAccounts {
		cp.coldAccounts[addr] = cold
	}
	for addr, slots := range j.coldSlots {
		dup := make(map[common.Hash]bool, len(slots))
		for k, v := range slots {
			dup[k] = v
		}
		cp.coldSlots[addr] = dup
	}
	// Rollback entries do not survive a clone: the clone starts life as its
	// own lineage with the checkpoint reset, matching go-ethereum's
	// snapshot semantics (you can revert the live state back to a clone,
	// but the clone itself has no further ancestors to revert to).
	return cp
}

// Accounts returns the full account map for iteration (persistent-account
// merges, dumpState).
func (j *Inner) Accounts() map[common.Address]*Account { return j.accounts }

// IsCold reports whether addr is considered cold for gas accounting.
func (j *Inner) IsCold(addr common.Address) bool { return j.coldAccounts[addr] }

// SetCold marks addr cold/warm. Call isolation (spec.md §4.2.1) uses this to
// reset the warm set for a sub-transaction.
func (j *Inner) SetCold(addr common.Address, cold bool) { j.coldAccounts[addr] = cold }

// IsSlotCold reports whether (addr, slot) is cold.
func (j *Inner) IsSlotCold(addr common.Address, slot common.Hash) bool {
	return j.coldSlots[addr][slot]
}

// SetSlotCold marks (addr, slot) cold/warm.
func (j *Inner) SetSlotCold(addr common.Address, slot common.Hash, cold bool) {
	m, ok := j.coldSlots[addr]
	if !ok {
		m = make(map[common.Hash]bool)
		j.coldSlots[addr] = m
	}
	m[slot] = cold
}

// WarmAll marks every currently known account and slot warm except those of
// addresses whose preloadCold entry is true; used when merging an isolation
// sub-transaction's result back into the outer journal ("warm-status is
// monotonic", spec.md §4.2.1).
func (j *Inner) WarmAll(preloadCold map[common.Address]bool) {
	for addr := range j.accounts {
		if preloadCold[addr] {
			continue
		}
		j.coldAccounts[addr] = false
	}
	for addr, slots := range j.coldSlots {
		if preloadCold[addr] {
			continue
		}
		for slot := range slots {
			slots[slot] = false
		}
	}
}
