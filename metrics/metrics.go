// Package metrics exposes Prometheus collectors for the backend package.
// It is the pure-Go successor of the teacher's
// revm_bridge/metrics.go, which read a pair of cgo miss-counters out of the
// Rust side; here there is no FFI boundary to cross, so the counters are
// plain prometheus.Counter/Gauge values updated in-process.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors groups the counters a Backend registers. A nil *Collectors is
// valid everywhere methods are called on it (all methods no-op), so callers
// that don't care about metrics can simply leave the field zero.
type Collectors struct {
	AccountMisses  prometheus.Counter
	StorageMisses  prometheus.Counter
	RPCFetches     prometheus.Counter
	ActiveForks    prometheus.Gauge
	SnapshotsAlive prometheus.Gauge
}

// NewCollectors builds and registers a Collectors set under the given
// namespace (e.g. "forge_evm"). Pass a nil registry to skip registration
// (useful in tests that construct multiple Backends in the same process).
func NewCollectors(namespace string, reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		AccountMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "account_cache_misses_total",
			Help: "Number of ForkDB account reads that fell through to RPC.",
		}),
		StorageMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "storage_cache_misses_total",
			Help: "Number of ForkDB storage reads that fell through to RPC.",
		}),
		RPCFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rpc_fetches_total",
			Help: "Number of RPC calls issued by any fork's remote store.",
		}),
		ActiveForks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_forks",
			Help: "Number of forks currently registered with the backend.",
		}),
		SnapshotsAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshots_alive",
			Help: "Number of state snapshots not yet reverted.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.AccountMisses, c.StorageMisses, c.RPCFetches, c.ActiveForks, c.SnapshotsAlive)
	}
	return c
}

func (c *Collectors) incAccountMiss() {
	if c != nil {
		c.AccountMisses.Inc()
	}
}

func (c *Collectors) incStorageMiss() {
	if c != nil {
		c.StorageMisses.Inc()
	}
}

func (c *Collectors) incRPCFetch() {
	if c != nil {
		c.RPCFetches.Inc()
	}
}

// IncAccountMiss, IncStorageMiss and IncRPCFetch are exported wrappers so
// other packages can report on a *Collectors without reaching into
// unexported methods across a package boundary. backend's ForkDB calls the
// first two; nothing in this module calls IncRPCFetch.
func (c *Collectors) IncAccountMiss() { c.incAccountMiss() }
func (c *Collectors) IncStorageMiss() { c.incStorageMiss() }
func (c *Collectors) IncRPCFetch()    { c.incRPCFetch() }

func (c *Collectors) SetActiveForks(n int) {
	if c != nil {
		c.ActiveForks.Set(float64(n))
	}
}

func (c *Collectors) SetSnapshotsAlive(n int) {
	if c != nil {
		c.SnapshotsAlive.Set(float64(n))
	}
}
