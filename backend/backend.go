// Package backend implements the single state-reading surface the EVM
// reads through (spec.md §4.1): an in-memory database, any number of
// RPC-backed forks, and snapshot/revert machinery layered across both.
package backend

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/soltrace/forge-evm/journal"
	"github.com/soltrace/forge-evm/metrics"
	"github.com/soltrace/forge-evm/multifork"
)

// ForkConfig describes a fork creation request.
type ForkConfig struct {
	Endpoint string
	// BlockNumber is nil for "latest".
	BlockNumber *uint64
}

func (c ForkConfig) key() ForkID {
	tag := multifork.BlockTag{}
	if c.BlockNumber != nil {
		tag.Pinned = true
		tag.Number = *c.BlockNumber
	}
	return ForkID{Endpoint: c.Endpoint, Block: tag}
}

// Backend is the EVM's Database and the owner of fork lifecycle, snapshots,
// persistent accounts and the cheatcode-access allow-list (spec.md §4.1).
// A Backend is constructed fresh per test and is not safe for concurrent
// use by more than one goroutine, matching go-ethereum's own StateDB
// contract.
type Backend struct {
	worker *multifork.Worker
	mx     *metrics.Collectors

	forks        []*Fork // arena; index is the stable ForkLookupIndex
	localToIndex map[LocalForkID]int
	nextLocalID  LocalForkID

	forking bool
	active  LocalForkID

	// memJournal/memDB back the non-forking (in-memory) mode.
	memJournal *journal.Inner
	memDB      *ForkDB

	env *Env

	persistent  *PersistentAccountSet
	cheatAccess *CheatcodeAccessSet

	snapshots      map[SnapshotID]*StateSnapshot
	nextSnapshotID SnapshotID

	// forkInitJournal is captured the first time SelectFork is ever called
	// (spec.md §4.1 select_fork "On first-ever selection...").
	forkInitJournal *journal.Inner
	everForked      bool

	hasStateSnapshotFailure bool

	impureCheatcodes mapset.Set[string]
	globalForkLatest bool
}

// New constructs a Backend in non-forking (in-memory) mode.
func New(worker *multifork.Worker, mx *metrics.Collectors) *Backend {
	b := &Backend{
		worker:           worker,
		mx:               mx,
		localToIndex:     make(map[LocalForkID]int),
		memJournal:       journal.New(),
		memDB:            NewForkDB(nil),
		env:              DefaultEnv(),
		persistent:       NewPersistentAccountSet(),
		cheatAccess:      NewCheatcodeAccessSet(true), // in-memory mode grants by default
		snapshots:        make(map[SnapshotID]*StateSnapshot),
		impureCheatcodes: mapset.NewThreadUnsafeSet[string](),
	}
	b.memDB.mx = mx
	return b
}

// Env returns the currently active block/tx environment.
func (b *Backend) Env() *Env { return b.env }

// Persistent returns the persistent-account set.
func (b *Backend) Persistent() *PersistentAccountSet { return b.persistent }

// CheatcodeAccess returns the cheatcode-access allow-list.
func (b *Backend) CheatcodeAccess() *CheatcodeAccessSet { return b.cheatAccess }

// IsForking reports whether any fork is currently active.
func (b *Backend) IsForking() bool { return b.forking }

// ActiveJournal returns the journal for whichever store (in-memory or
// fork) is currently active — the "total chain of lookups" in spec.md §3.
func (b *Backend) ActiveJournal() (*journal.Inner, error) {
	if !b.forking {
		return b.memJournal, nil
	}
	fork, err := b.activeFork()
	if err != nil {
		return nil, err
	}
	return fork.Journal, nil
}

// ActiveForkDB returns the ForkDB backing whichever store is active.
func (b *Backend) ActiveForkDB() (*ForkDB, error) {
	if !b.forking {
		return b.memDB, nil
	}
	fork, err := b.activeFork()
	if err != nil {
		return nil, err
	}
	return fork.DB, nil
}

func (b *Backend) activeFork() (*Fork, error) {
	idx, ok := b.localToIndex[b.active]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLocalFork, b.active)
	}
	f := b.forks[idx]
	if f == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLocalFork, b.active)
	}
	return f, nil
}

// forkByLocalID resolves an explicit-or-active LocalForkID argument, the
// pattern every `id?` operation in spec.md §4.1 uses.
func (b *Backend) forkByLocalID(id *LocalForkID) (*Fork, LocalForkID, error) {
	target := b.active
	if id != nil {
		target = *id
	}
	idx, ok := b.localToIndex[target]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownLocalFork, target)
	}
	f := b.forks[idx]
	if f == nil {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownLocalFork, target)
	}
	return f, target, nil
}

// newForkFromConfig dials (or reuses) the content-addressed store for cfg
// and returns a freshly constructed, not-yet-registered Fork.
func (b *Backend) newForkFromConfig(ctx context.Context, cfg ForkConfig) (*Fork, error) {
	key := cfg.key()
	if !key.Block.Pinned {
		b.globalForkLatest = true
	}
	store, err := b.worker.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	blockNum, err := store.ResolveBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	db := NewForkDB(store)
	db.mx = b.mx
	return &Fork{
		ID:              key,
		DB:              db,
		Journal:         journal.New(),
		ForkBlockNumber: &blockNum,
	}, nil
}

// CreateFork allocates a new fork without switching to it (spec.md §4.1
// create_fork).
func (b *Backend) CreateFork(ctx context.Context, cfg ForkConfig) (LocalForkID, error) {
	fork, err := b.newForkFromConfig(ctx, cfg)
	if err != nil {
		return 0, err
	}
	return b.registerFork(fork), nil
}

func (b *Backend) registerFork(fork *Fork) LocalForkID {
	id := b.nextLocalID
	b.nextLocalID++
	b.forks = append(b.forks, fork)
	b.localToIndex[id] = len(b.forks) - 1
	if b.mx != nil {
		b.mx.SetActiveForks(len(b.forks))
	}
	return id
}

// CreateSelectFork creates a fork and immediately makes it active.
func (b *Backend) CreateSelectFork(ctx context.Context, cfg ForkConfig) (LocalForkID, error) {
	id, err := b.CreateFork(ctx, cfg)
	if err != nil {
		return 0, err
	}
	if err := b.SelectFork(ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}

// SelectFork switches the active store to id, idempotently, following the
// procedure in spec.md §4.1 select_fork.
func (b *Backend) SelectFork(ctx context.Context, id LocalForkID) error {
	target, _, err := b.forkByLocalID(&id)
	if err != nil {
		return err
	}

	if b.forking && b.active == id {
		return nil // already selected: idempotent per spec.md §3 invariants
	}

	currentDepth := 0
	if cur, err := b.ActiveJournal(); err == nil {
		currentDepth = cur.Depth
	}

	if !b.everForked {
		// First-ever selection: capture the current (pre-fork) journal and
		// strip non-persistent loaded accounts from it, per spec.md §4.1.
		b.forkInitJournal = b.memJournal.Clone()
		b.everForked = true
		b.stripNonPersistentLoaded(b.memJournal)
	} else if b.forking {
		// Preserve roll effects on the outgoing fork by recording the live
		// block number as its fork block number. The timestamp is not stored
		// per fork: Env is shared, so warp effects simply carry over.
		outgoing, _ := b.activeFork()
		outgoing.Journal.Depth = currentDepth
		n := b.env.Number
		outgoing.ForkBlockNumber = &n
	}

	if b.forking {
		// Carry persistent-account storage from the outgoing store into the
		// target fork's journal before switching away from it.
		b.mergePersistentInto(target.Journal)
	} else {
		b.mergePersistentInto(target.Journal)
	}

	target.Journal.Depth = currentDepth
	b.ensureCallerAccount(target)

	b.active = id
	b.forking = true
	b.env.Number = *target.ForkBlockNumber
	log.Debug("backend: selected fork", "local_id", id, "endpoint", target.ID.Endpoint)
	return nil
}

// stripNonPersistentLoaded implements spec.md's "an account loaded before
// any fork selection that is neither precompile nor persistent is replaced
// with the fork's canonical account; an account that was created locally is
// preserved."
func (b *Backend) stripNonPersistentLoaded(j *journal.Inner) {
	for addr, acc := range j.Accounts() {
		if acc.Created || b.persistent.Contains(addr) {
			continue
		}
		delete(j.Accounts(), addr)
	}
}

// mergePersistentInto copies every persistent account's data and storage
// from the currently-active store into target (spec.md §3 Invariants:
// "Persistent accounts: on fork creation and fork switch, their account
// data and storage are merged from the previously active store into the
// target fork's journal and DB").
func (b *Backend) mergePersistentInto(target *journal.Inner) {
	src, err := b.ActiveJournal()
	if err != nil {
		return
	}
	for _, addr := range b.persistent.ToSlice() {
		if acc, ok := src.Accounts()[addr]; ok {
			target.SetAccount(addr, acc)
		}
		if slots := src.StorageMap(addr); slots != nil {
			for slot, val := range slots {
				target.SetStorage(addr, slot, val)
			}
		}
	}
}

func (b *Backend) ensureCallerAccount(f *Fork) {
	if !f.Journal.HasAccount(DefaultTestSender) {
		f.Journal.JournaledAccount(DefaultTestSender)
	}
}

// RollFork replaces the ForkID backing id (or the active fork) with one
// pinned at blockNumber, preserving persistent accounts (spec.md §4.1
// roll_fork).
func (b *Backend) RollFork(ctx context.Context, id *LocalForkID, blockNumber uint64) error {
	target, localID, err := b.forkByLocalID(id)
	if err != nil {
		return err
	}

	cfg := ForkConfig{Endpoint: target.ID.Endpoint, BlockNumber: &blockNumber}
	fresh, err := b.newForkFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	isActive := b.forking && b.active == localID
	if isActive {
		// Accounts created in the current journal (touched flag) are
		// preserved; others are reloaded at the new block.
		preserved := journal.New()
		for addr, acc := range target.Journal.Accounts() {
			if acc.Touched {
				preserved.SetAccount(addr, acc)
			}
		}
		fresh.Journal = b.forkInitJournal.Clone()
		for addr, acc := range preserved.Accounts() {
			fresh.Journal.SetAccount(addr, acc)
		}
		b.mergePersistentInto(fresh.Journal)
		b.ensureCallerAccount(fresh)
		b.env.Number = *fresh.ForkBlockNumber
	} else {
		b.mergePersistentInto(fresh.Journal)
	}

	idx := b.localToIndex[localID]
	b.forks[idx] = fresh
	log.Debug("backend: rolled fork", "local_id", localID, "block", blockNumber)
	return nil
}

// SnapshotState deep-clones the current active db, journal and env
// (spec.md §4.1 snapshot_state).
func (b *Backend) SnapshotState() SnapshotID {
	activeDB, _ := b.ActiveForkDB()
	activeJournal, _ := b.ActiveJournal()

	id := b.nextSnapshotID
	b.nextSnapshotID++
	b.snapshots[id] = &StateSnapshot{
		ActiveForkDB:    activeDB.Clone(),
		Journal:         activeJournal.Clone(),
		Env:             b.env.Clone(),
		ActiveLocalFork: b.active,
		Forking:         b.forking,
	}
	if b.mx != nil {
		b.mx.SetSnapshotsAlive(len(b.snapshots))
	}
	return id
}

// RevertState restores a previously taken snapshot, per the contract in
// spec.md §4.1 revert_state. Returns the restored journal, or nil if id is
// unknown.
func (b *Backend) RevertState(id SnapshotID, action RevertAction) (*journal.Inner, error) {
	snap, ok := b.snapshots[id]
	if !ok {
		return nil, nil
	}

	// Reverting id N also deletes any snapshot with id > N (spec.md §3
	// Snapshot lifecycle).
	for other := range b.snapshots {
		if other > id {
			delete(b.snapshots, other)
		}
	}

	if action == RevertActionRemove {
		delete(b.snapshots, id)
	} else {
		b.snapshots[id] = snap
	}
	if b.mx != nil {
		b.mx.SetSnapshotsAlive(len(b.snapshots))
	}

	b.forking = snap.Forking
	b.active = snap.ActiveLocalFork
	b.env = snap.Env.Clone()

	if b.forking {
		fork, err := b.activeFork()
		if err == nil {
			fork.DB = snap.ActiveForkDB.Clone()
			fork.Journal = snap.Journal.Clone()
		}
	} else {
		b.memDB = snap.ActiveForkDB.Clone()
		b.memJournal = snap.Journal.Clone()
	}

	// A failed assertion before the snapshot's matching revert sets
	// GlobalFailSlot at CheatcodeAddress to 1; spec.md §4.1 & §7.
	restored, _ := b.ActiveJournal()
	if restored.Storage(CheatcodeAddress, GlobalFailSlot) == common.HexToHash("0x1") {
		b.hasStateSnapshotFailure = true
	}

	return restored, nil
}

// HasStateSnapshotFailure reports the sticky failure flag set by
// RevertState (spec.md §7 "the host treats this as a test failure even if
// the surface assertion passed after revert").
func (b *Backend) HasStateSnapshotFailure() bool { return b.hasStateSnapshotFailure }

// RecordImpureCheatcode marks signature as impure for the indeterminism
// report (spec.md §4.2 "Record pure-vs-impure status on the backend").
func (b *Backend) RecordImpureCheatcode(signature string) {
	b.impureCheatcodes.Add(signature)
}

// IndeterminismReport is spec.md §6's "Indeterminism report".
type IndeterminismReport struct {
	GlobalForkLatest bool
	ImpureCheatcodes []string
}

// IndeterminismReport returns the current indeterminism report.
func (b *Backend) IndeterminismReport() IndeterminismReport {
	return IndeterminismReport{
		GlobalForkLatest: b.globalForkLatest,
		ImpureCheatcodes: b.impureCheatcodes.ToSlice(),
	}
}

// SetBlockHash inserts an override into the active store's blockhash cache.
// Only blocks in [current-256, current) are observable per EVM semantics;
// setting outside the window has no effect (spec.md §4.1 set_blockhash).
func (b *Backend) SetBlockHash(number uint64, hash common.Hash) error {
	db, err := b.ActiveForkDB()
	if err != nil {
		return err
	}
	current := b.env.Number
	if current == 0 || number >= current || (current > 256 && number < current-256) {
		return nil
	}
	db.SetBlockHash(number, hash)
	return nil
}
