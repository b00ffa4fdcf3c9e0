package engine

import (
	"math/big"
	"sync"
	"sync/atomic"

	"vidar/internal/common"
)

// Aggregator keeps the monotonic book-level counters and the per-trader
// bookkeeping. The three book counters are independent atomics; trader
// entries are guarded by a single mutex since settled balances are
// arbitrary-precision and cannot be CAS'd.
type Aggregator struct {
	placed    atomic.Uint64
	matched   atomic.Uint64
	cancelled atomic.Uint64

	mu      sync.Mutex
	traders map[string]*traderEntry
}

type traderEntry struct {
	orders  uint64
	settled *big.Int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		traders: make(map[string]*traderEntry),
	}
}

// RecordPlaced counts one successful placement for owner.
func (a *Aggregator) RecordPlaced(owner string) {
	a.placed.Add(1)

	a.mu.Lock()
	a.entry(owner).orders++
	a.mu.Unlock()
}

// RecordCancelled counts one successful cancellation.
func (a *Aggregator) RecordCancelled() {
	a.cancelled.Add(1)
}

// RecordMatched counts n successful pairs, invoked once per batch.
func (a *Aggregator) RecordMatched(n uint64) {
	if n == 0 {
		return
	}
	a.matched.Add(n)
}

// Credit grows owner's settled balance by amount.
func (a *Aggregator) Credit(owner string, amount *big.Int) {
	a.mu.Lock()
	e := a.entry(owner)
	e.settled.Add(e.settled, amount)
	a.mu.Unlock()
}

// Trader returns a copy of owner's bookkeeping. Unknown owners report
// zero counts rather than an error.
func (a *Aggregator) Trader(owner string) common.TraderStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.traders[owner]
	if !ok {
		return common.TraderStats{SettledBalance: new(big.Int)}
	}
	return common.TraderStats{
		OrderCount:     e.orders,
		SettledBalance: new(big.Int).Set(e.settled),
	}
}

// Snapshot reads the three book counters. Each counter read is atomic;
// no cross-counter ordering is implied.
func (a *Aggregator) Snapshot() common.BookStats {
	return common.BookStats{
		Placed:    a.placed.Load(),
		Matched:   a.matched.Load(),
		Cancelled: a.cancelled.Load(),
	}
}

// entry must be called with mu held.
func (a *Aggregator) entry(owner string) *traderEntry {
	e, ok := a.traders[owner]
	if !ok {
		e = &traderEntry{settled: new(big.Int)}
		a.traders[owner] = e
	}
	return e
}
