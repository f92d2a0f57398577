package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/soltrace/forge-evm/journal"
	"github.com/soltrace/forge-evm/metrics"
	"github.com/soltrace/forge-evm/multifork"
)

// ForkDB is a cache layered over a remote RPC backend (spec.md §3). Account,
// code and block-hash reads fall through to RPC on miss and are cached
// locally; storage reads are not cached and go to RPC every time. Writes never reach
// RPC — they stay local, exactly the contract the teacher's stateDBImpl
// upheld for the Rust side, minus the FFI boundary.
type ForkDB struct {
	store *multifork.Store // nil for the in-memory (non-forking) ForkDB
	mx    *metrics.Collectors

	mu        sync.Mutex
	accounts  map[common.Address]*journal.Account
	contracts map[common.Hash][]byte
	blockHash map[uint64]common.Hash
}

// NewForkDB wraps a multifork.Store. Pass nil for an in-memory ForkDB with
// no RPC fallthrough (used for the non-forking backend mode).
func NewForkDB(store *multifork.Store) *ForkDB {
	return &ForkDB{
		store:     store,
		accounts:  make(map[common.Address]*journal.Account),
		contracts: make(map[common.Hash][]byte),
		blockHash: make(map[uint64]common.Hash),
	}
}

// Basic returns the account info for addr, falling through to RPC on a
// local cache miss when store is non-nil.
func (f *ForkDB) Basic(ctx context.Context, addr common.Address) (*journal.Account, error) {
	f.mu.Lock()
	if acc, ok := f.accounts[addr]; ok {
		f.mu.Unlock()
		return acc, nil
	}
	f.mu.Unlock()

	if f.store == nil {
		acc := &journal.Account{Balance: new(uint256.Int)}
		f.mu.Lock()
		f.accounts[addr] = acc
		f.mu.Unlock()
		return acc, nil
	}

	f.mx.IncAccountMiss()
	bal, err := f.store.BalanceAt(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("forkdb: fetch balance for %s: %w", addr, err)
	}
	nonce, err := f.store.NonceAt(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("forkdb: fetch nonce for %s: %w", addr, err)
	}
	u256Bal, overflow := uint256.FromBig(bal)
	if overflow {
		return nil, fmt.Errorf("forkdb: balance for %s overflows uint256", addr)
	}
	acc := &journal.Account{Balance: u256Bal, Nonce: nonce}
	f.mu.Lock()
	f.accounts[addr] = acc
	f.mu.Unlock()
	log.Debug("forkdb: fetched account over RPC", "addr", addr)
	return acc, nil
}

// Storage returns the value at (addr, slot) read from the remote store, or
// the zero hash for the in-memory ForkDB. Nothing is cached: every call on a
// forking ForkDB is an RPC read. journal.Inner sits above ForkDB and holds
// locally written slots.
func (f *ForkDB) Storage(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	if f.store == nil {
		return common.Hash{}, nil
	}
	f.mx.IncStorageMiss()
	val, err := f.store.StorageAt(ctx, addr, slot)
	if err != nil {
		return common.Hash{}, fmt.Errorf("forkdb: fetch storage %s/%s: %w", addr, slot, err)
	}
	return val, nil
}

// CodeByHash returns the bytecode for codeHash, checking the local cache
// before falling through to RPC by address (RPC has no code-by-hash
// endpoint, so the caller must also pass the owning address on first
// fetch).
func (f *ForkDB) CodeByHash(ctx context.Context, codeHash common.Hash, owner common.Address) ([]byte, error) {
	f.mu.Lock()
	if code, ok := f.contracts[codeHash]; ok {
		f.mu.Unlock()
		return append([]byte(nil), code...), nil
	}
	f.mu.Unlock()

	if f.store == nil {
		return nil, nil
	}
	code, err := f.store.CodeAt(ctx, codeHash, owner)
	if err != nil {
		return nil, fmt.Errorf("forkdb: fetch code for %s: %w", owner, err)
	}
	f.mu.Lock()
	f.contracts[codeHash] = code
	f.mu.Unlock()
	return code, nil
}

// StoreCode installs code under codeHash in the local cache directly
// (used after a local CREATE, mirroring the teacher's re_state_store_code).
func (f *ForkDB) StoreCode(codeHash common.Hash, code []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contracts[codeHash] = append([]byte(nil), code...)
}

// BlockHash resolves the canonical block hash for number. Per EVM
// semantics (spec.md §4.1 set_blockhash), only blocks in
// [current-256, current) are observable; the caller enforces the window,
// this method only resolves/caches the value.
func (f *ForkDB) BlockHash(ctx context.Context, number uint64) (common.Hash, error) {
	f.mu.Lock()
	if h, ok := f.blockHash[number]; ok {
		f.mu.Unlock()
		return h, nil
	}
	f.mu.Unlock()

	if f.store == nil {
		return common.Hash{}, nil
	}
	h, err := f.store.BlockByHash(ctx, number)
	if err != nil {
		return common.Hash{}, fmt.Errorf("forkdb: fetch block hash %d: %w", number, err)
	}
	f.mu.Lock()
	f.blockHash[number] = h
	f.mu.Unlock()
	return h, nil
}

// SetBlockHash installs an explicit override, used by Backend.SetBlockHash.
func (f *ForkDB) SetBlockHash(number uint64, hash common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockHash[number] = hash
}

// BatchKey identifies a (address, storage slot) tuple to prefetch. An
// all-zero Slot means "only the account, no storage" — ported from the
// teacher's revm_bridge/batch_prefetch.go.
type BatchKey struct {
	Address common.Address
	Slot    common.Hash
}

// Prefetch warms the local account cache for every key's address and reads
// each non-zero slot once (storage is not cached), best-effort: RPC failures
// are logged and otherwise ignored, since prefetching is purely an
// optimization ahead of the call-isolation path (spec.md §4.2.1).
func (f *ForkDB) Prefetch(ctx context.Context, keys []BatchKey) {
	if len(keys) == 0 {
		return
	}
	for _, k := range keys {
		if _, err := f.Basic(ctx, k.Address); err != nil {
			log.Debug("forkdb: prefetch account failed", "addr", k.Address, "err", err)
			continue
		}
		if k.Slot == (common.Hash{}) {
			continue
		}
		if _, err := f.Storage(ctx, k.Address, k.Slot); err != nil {
			log.Debug("forkdb: prefetch storage failed", "addr", k.Address, "slot", k.Slot, "err", err)
		}
	}
}

// Clone deep-copies the local cache for BackendStateSnapshot. The
// underlying store is shared (re-dialing RPC for a snapshot would defeat
// its purpose) but every locally cached value is duplicated so mutations
// after the snapshot cannot alias it (spec.md §9 "Snapshot immutability").
func (f *ForkDB) Clone() *ForkDB {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := &ForkDB{
		store:     f.store,
		mx:        f.mx,
		accounts:  make(map[common.Address]*journal.Account, len(f.accounts)),
		contracts: make(map[common.Hash][]byte, len(f.contracts)),
		blockHash: make(map[uint64]common.Hash, len(f.blockHash)),
	}
	for addr, acc := range f.accounts {
		accCopy := *acc
		if acc.Balance != nil {
			accCopy.Balance = new(uint256.Int).Set(acc.Balance)
		}
		cp.accounts[addr] = &accCopy
	}
	for h, code := range f.contracts {
		cp.contracts[h] = append([]byte(nil), code...)
	}
	for n, h := range f.blockHash {
		cp.blockHash[n] = h
	}
	return cp
}
