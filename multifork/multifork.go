// Package multifork implements the one shared object described in spec.md
// §5: a handle to a worker that owns the long-lived RPC-backed stores and
// serves fork creation/rolling on demand, content-addressing (endpoint,
// block) requests so that identical requests share the same underlying
// store.
package multifork

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// BlockTag identifies the fork's target: either a pinned block number or
// "latest" (Pinned == false). spec.md's ForkId is `(endpoint, Option<block_number>)`.
type BlockTag struct {
	Pinned bool
	Number uint64
}

func (t BlockTag) String() string {
	if !t.Pinned {
		return "latest"
	}
	return fmt.Sprintf("%d", t.Number)
}

// Key content-addresses a Store: equal (Endpoint, Block) pairs share the
// same underlying RPC-backed store, per spec.md §3 "ForkId... Equal pairs
// share an underlying RPC-backed store."
type Key struct {
	Endpoint string
	Block    BlockTag
}

func (k Key) String() string { return k.Endpoint + "@" + k.Block.String() }

// Store is the RPC-backed remote reader a Store-keyed ForkDB falls through
// to on a cache miss. It wraps *ethclient.Client, the real go-ethereum JSON-RPC
// client — the provider façade itself (connection pooling, retry, batching)
// stays out of scope per spec.md §1.
type Store struct {
	key    Key
	client *ethclient.Client

	mu          sync.Mutex
	blockNumber uint64 // resolved block number; set on first use and then kept, for pinned and "latest" alike

	codeCache  *lru.Cache[common.Hash, []byte]
	blockHashC *lru.Cache[uint64, common.Hash]
}

func newStore(key Key, client *ethclient.Client) *Store {
	codeCache, _ := lru.New[common.Hash, []byte](4096)
	blockHashC, _ := lru.New[uint64, common.Hash](4096)
	return &Store{key: key, client: client, codeCache: codeCache, blockHashC: blockHashC}
}

// ResolveBlockNumber returns the concrete block number this store reads at,
// dialing RPC once for "latest" and caching the result for the lifetime of
// the store. Worker.Resolve returns the same Store for the same key, so a
// "latest" store never re-reads the chain tip.
func (s *Store) ResolveBlockNumber(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blockNumber != 0 {
		return s.blockNumber, nil
	}
	if s.key.Block.Pinned {
		s.blockNumber = s.key.Block.Number
		return s.blockNumber, nil
	}
	n, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("multifork: resolve latest block for %s: %w", s.key.Endpoint, err)
	}
	s.blockNumber = n
	return n, nil
}

// BalanceAt, NonceAt, CodeAt and StorageAt mirror the subset of ethclient
// reads a ForkDB fallthrough needs, each pinned to the store's resolved
// block number. BlockByHash, below, resolves a block number to its hash.
func (s *Store) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	n, err := s.ResolveBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.BalanceAt(ctx, addr, new(big.Int).SetUint64(n))
}

func (s *Store) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	n, err := s.ResolveBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return s.client.NonceAt(ctx, addr, new(big.Int).SetUint64(n))
}

func (s *Store) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	n, err := s.ResolveBlockNumber(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	raw, err := s.client.StorageAt(ctx, addr, slot, new(big.Int).SetUint64(n))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

func (s *Store) CodeAt(ctx context.Context, codeHash common.Hash, addr common.Address) ([]byte, error) {
	if code, ok := s.codeCache.Get(codeHash); ok {
		return code, nil
	}
	n, err := s.ResolveBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	code, err := s.client.CodeAt(ctx, addr, new(big.Int).SetUint64(n))
	if err != nil {
		return nil, err
	}
	s.codeCache.Add(codeHash, code)
	return code, nil
}

func (s *Store) BlockByHash(ctx context.Context, number uint64) (common.Hash, error) {
	if h, ok := s.blockHashC.Get(number); ok {
		return h, nil
	}
	hdr, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return common.Hash{}, err
	}
	s.blockHashC.Add(number, hdr.Hash())
	return hdr.Hash(), nil
}

func (s *Store) TransactionInBlock(ctx context.Context, blockHash common.Hash, index uint) (*types.Transaction, error) {
	return s.client.TransactionInBlock(ctx, blockHash, index)
}

func (s *Store) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	return s.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
}

func (s *Store) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, uint64, error) {
	tx, pending, err := s.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, false, 0, err
	}
	if pending {
		return tx, true, 0, nil
	}
	receipt, err := s.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return tx, false, 0, err
	}
	return tx, false, receipt.BlockNumber.Uint64(), nil
}

// Dialer abstracts client construction so tests can substitute a fake.
type Dialer func(ctx context.Context, endpoint string) (*ethclient.Client, error)

func defaultDialer(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, endpoint)
}

// Worker is the shared, concurrency-safe handle described in spec.md §5. It
// owns every live *Store and deduplicates concurrent creation requests for
// the same (endpoint, block) via singleflight, so "identical requests share
// the same underlying store" even under concurrent callers.
type Worker struct {
	dial Dialer

	mu     sync.Mutex
	stores map[Key]*Store
	sf     singleflight.Group
}

// NewWorker constructs a Worker using the real ethclient dialer.
func NewWorker() *Worker {
	return &Worker{dial: defaultDialer, stores: make(map[Key]*Store)}
}

// NewWorkerWithDialer is exposed for tests that need to avoid real network
// dials.
func NewWorkerWithDialer(dial Dialer) *Worker {
	return &Worker{dial: dial, stores: make(map[Key]*Store)}
}

// Resolve returns the Store for key, creating (and dialing) it on first
// request. Concurrent Resolve calls for the same key collapse to a single
// dial.
func (w *Worker) Resolve(ctx context.Context, key Key) (*Store, error) {
	w.mu.Lock()
	if s, ok := w.stores[key]; ok {
		w.mu.Unlock()
		return s, nil
	}
	w.mu.Unlock()

	v, err, _ := w.sf.Do(key.String(), func() (interface{}, error) {
		w.mu.Lock()
		if s, ok := w.stores[key]; ok {
			w.mu.Unlock()
			return s, nil
		}
		w.mu.Unlock()

		client, derr := w.dial(ctx, key.Endpoint)
		if derr != nil {
			return nil, fmt.Errorf("multifork: dial %s: %w", key.Endpoint, derr)
		}
		store := newStore(key, client)
		w.mu.Lock()
		w.stores[key] = store
		w.mu.Unlock()
		log.Debug("multifork: created store", "endpoint", key.Endpoint, "block", key.Block)
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Count reports the number of distinct underlying stores currently alive.
func (w *Worker) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stores)
}
