package multifork

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/ethclient"
)

func countingDialer(calls *int32, mu *sync.Mutex) Dialer {
	return func(ctx context.Context, endpoint string) (*ethclient.Client, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		// A nil *ethclient.Client with no error exercises the content-addressing
		// path without requiring a live RPC endpoint; Store methods that need a
		// real client are not invoked by this test.
		return nil, nil
	}
}

func TestResolveContentAddressesConcurrently(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	w := NewWorkerWithDialer(countingDialer(&calls, &mu))

	key := Key{Endpoint: "https://example.invalid", Block: BlockTag{Pinned: true, Number: 100}}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := w.Resolve(context.Background(), key); err != nil {
				t.Errorf("resolve failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly one dial for identical (endpoint, block) pairs, got %d", calls)
	}
	if w.Count() != 1 {
		t.Fatalf("expected one store, got %d", w.Count())
	}
}

func TestResolveDistinctKeysCreateDistinctStores(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	w := NewWorkerWithDialer(countingDialer(&calls, &mu))

	k1 := Key{Endpoint: "https://a.invalid", Block: BlockTag{Pinned: true, Number: 1}}
	k2 := Key{Endpoint: "https://a.invalid", Block: BlockTag{Pinned: true, Number: 2}}

	if _, err := w.Resolve(context.Background(), k1); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Resolve(context.Background(), k2); err != nil {
		t.Fatal(err)
	}

	if w.Count() != 2 {
		t.Fatalf("expected two distinct stores, got %d", w.Count())
	}
}
