// Package engine implements the conflict-free order book: an id
// allocator, the authoritative order store, exact-amount pairwise
// matching and the stats bookkeeping, composed behind the Book facade.
// Operations touching disjoint order ids never block each other; races
// on a shared id are decided by a compare-and-swap on that order's
// status.
package engine

import (
	"math/big"

	"github.com/rs/zerolog/log"

	"vidar/internal/common"
	"vidar/internal/notify"
)

const cancelledByOwner = "cancelled by owner"

// Archive receives orders once they reach a terminal state. It is an
// optional collaborator; durability is not the engine's concern.
type Archive interface {
	Append(order common.Order) error
}

// Book is the single entry point into the engine. It validates input,
// enforces ownership on cancellation and composes the allocator, store,
// matcher and stats aggregator. Operations on disjoint order ids never
// contend with each other.
type Book struct {
	alloc    *Allocator
	store    *Store
	matcher  *Matcher
	stats    *Aggregator
	notifier notify.Notifier
	archive  Archive
}

func NewBook() *Book {
	alloc := NewAllocator()
	store := NewStore(alloc)
	stats := NewAggregator()
	return &Book{
		alloc:    alloc,
		store:    store,
		matcher:  NewMatcher(store, stats),
		stats:    stats,
		notifier: notify.Discard{},
	}
}

// SetNotifier installs the event observer. Must be called before the book
// starts taking traffic.
func (b *Book) SetNotifier(n notify.Notifier) {
	b.notifier = n
}

// SetArchive installs the terminal-order archive. Must be called before
// the book starts taking traffic.
func (b *Book) SetArchive(a Archive) {
	b.archive = a
}

// PlaceOrder creates a new Active order and returns its id. Fails with
// ErrInvalidAmount when either amount is missing or not positive; a failed
// placement consumes no id and moves no counter.
func (b *Book) PlaceOrder(owner string, base, quote *big.Int, side common.Side) (uint64, error) {
	id, err := b.store.Create(owner, base, quote, side)
	if err != nil {
		return 0, err
	}

	b.stats.RecordPlaced(owner)

	order, _ := b.store.Get(id)
	b.notifier.Notify(notify.NewPlacedEvent(order))
	return id, nil
}

// CancelOrder moves caller's Active order to Cancelled. An unknown id, an
// already cancelled order and an already matched order all report
// ErrOrderNotFound; a live order owned by someone else reports
// ErrUnauthorized and stays Active.
func (b *Book) CancelOrder(caller string, id uint64) error {
	order, ok := b.store.Get(id)
	if !ok || order.Status != common.Active {
		return ErrOrderNotFound
	}
	if caller != order.Owner {
		return ErrUnauthorized
	}

	// The racing case: another cancel or a match may have won between the
	// read above and here. The CAS decides.
	if !b.store.Invalidate(id, common.Cancelled) {
		return ErrOrderNotFound
	}

	b.stats.RecordCancelled()
	b.archiveTerminal(id)
	b.notifier.Notify(notify.NewCancelledEvent(order, cancelledByOwner))
	return nil
}

// MatchOrders pairs buyIDs[i] with sellIDs[i] and attempts each pair in
// turn, returning how many matched. Pairs that reference missing, inactive
// or incompatible orders are skipped silently; only mismatched list
// lengths fail the batch. Empty lists are a valid empty batch.
func (b *Book) MatchOrders(buyIDs, sellIDs []uint64) (uint64, error) {
	if len(buyIDs) != len(sellIDs) {
		return 0, ErrInvalidBatchSize
	}

	var matched uint64
	for i := range buyIDs {
		settlement, ok := b.matcher.TryMatch(buyIDs[i], sellIDs[i])
		if !ok {
			continue
		}
		matched++

		b.archiveTerminal(settlement.BuyID)
		b.archiveTerminal(settlement.SellID)
		b.notifier.Notify(notify.NewMatchedEvent(
			settlement.BuyID,
			settlement.SellID,
			settlement.Buyer,
			settlement.Seller,
			settlement.BuyerCredit,
			settlement.SellerCredit,
		))
	}

	b.stats.RecordMatched(matched)
	b.notifier.Notify(notify.NewProcessedEvent(len(buyIDs), matched))
	return matched, nil
}

// GetOrder returns the stored record regardless of status.
func (b *Book) GetOrder(id uint64) (common.Order, bool) {
	return b.store.Get(id)
}

// OpenOrders lists Active orders in ascending id order, up to limit.
func (b *Book) OpenOrders(limit int) []common.Order {
	return b.store.OpenOrders(limit)
}

// TraderStats returns the bookkeeping for owner.
func (b *Book) TraderStats(owner string) common.TraderStats {
	return b.stats.Trader(owner)
}

// Stats returns the book-level counters.
func (b *Book) Stats() common.BookStats {
	return b.stats.Snapshot()
}

func (b *Book) archiveTerminal(id uint64) {
	if b.archive == nil {
		return
	}
	order, ok := b.store.Get(id)
	if !ok {
		return
	}
	if err := b.archive.Append(order); err != nil {
		log.Error().Err(err).Uint64("order_id", id).Msg("unable to archive order")
	}
}
