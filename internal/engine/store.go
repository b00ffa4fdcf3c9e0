package engine

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"

	"vidar/internal/common"
)

// statusMatchPending is an internal reservation used while a pairwise match
// is in flight. It is never visible outside the store: snapshots report it
// as Active. A cancel racing the match loses its compare-and-swap against
// the reservation, which is how exactly-one-winner is enforced.
const statusMatchPending = int32(100)

// record is the mutable, store-owned form of an order. Everything except
// status is written once before publication; status moves via CAS only.
type record struct {
	id      uint64
	owner   string
	base    *big.Int
	quote   *big.Int
	side    common.Side
	created time.Time
	status  atomic.Int32
}

func (r *record) snapshot() common.Order {
	st := common.Status(r.status.Load())
	if st == common.Status(statusMatchPending) {
		// Still logically active until both legs of the match commit.
		st = common.Active
	}
	return common.Order{
		ID:          r.id,
		Owner:       r.owner,
		BaseAmount:  new(big.Int).Set(r.base),
		QuoteAmount: new(big.Int).Set(r.quote),
		Side:        r.side,
		Status:      st,
		CreatedAt:   r.created,
	}
}

// Store owns the authoritative id to order mapping. Records are never
// physically deleted; terminal records stay resident for later lookup.
// The active index tracks ids whose record is still Active, sorted by id.
type Store struct {
	alloc *Allocator

	mu     sync.RWMutex
	orders map[uint64]*record

	active *btree.BTreeG[uint64]
}

func NewStore(alloc *Allocator) *Store {
	return &Store{
		alloc:  alloc,
		orders: make(map[uint64]*record),
		active: btree.NewBTreeG(func(a, b uint64) bool { return a < b }),
	}
}

// Create validates the amounts, allocates an id and publishes an Active
// record. Validation happens before the allocator is touched, so a rejected
// placement never consumes an id.
func (s *Store) Create(owner string, base, quote *big.Int, side common.Side) (uint64, error) {
	if base == nil || quote == nil || base.Sign() <= 0 || quote.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}

	id := s.alloc.Next()
	rec := &record{
		id:      id,
		owner:   owner,
		base:    new(big.Int).Set(base),
		quote:   new(big.Int).Set(quote),
		side:    side,
		created: time.Now(),
	}

	s.mu.Lock()
	s.orders[id] = rec
	s.mu.Unlock()

	s.active.Set(id)
	return id, nil
}

// Get returns a snapshot of the record, regardless of status.
func (s *Store) Get(id uint64) (common.Order, bool) {
	rec, ok := s.record(id)
	if !ok {
		return common.Order{}, false
	}
	return rec.snapshot(), true
}

// Invalidate moves a record out of Active as a single compare-and-swap.
// It performs no authorization check; that is the caller's job. Returns
// false when the record is unknown or already left Active.
func (s *Store) Invalidate(id uint64, to common.Status) bool {
	rec, ok := s.record(id)
	if !ok {
		return false
	}
	if !rec.status.CompareAndSwap(int32(common.Active), int32(to)) {
		return false
	}
	s.active.Delete(id)
	return true
}

// OpenOrders returns up to limit Active orders in ascending id order.
// limit <= 0 means no limit.
func (s *Store) OpenOrders(limit int) []common.Order {
	out := make([]common.Order, 0, 32)
	s.active.Scan(func(id uint64) bool {
		rec, ok := s.record(id)
		if !ok {
			return true
		}
		snap := rec.snapshot()
		if snap.Status != common.Active {
			return true
		}
		out = append(out, snap)
		return limit <= 0 || len(out) < limit
	})
	return out
}

func (s *Store) record(id uint64) (*record, bool) {
	s.mu.RLock()
	rec, ok := s.orders[id]
	s.mu.RUnlock()
	return rec, ok
}

// retire removes an id from the active index once its record has left
// Active through a path other than Invalidate.
func (s *Store) retire(id uint64) {
	s.active.Delete(id)
}
