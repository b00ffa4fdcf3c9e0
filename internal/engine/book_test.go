package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidar/internal/common"
	"vidar/internal/notify"
)

// captureNotifier records events synchronously for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Notify(event notify.Event) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *captureNotifier) byKind(kind notify.Kind) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.events {
		if e.GetKind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestBook() (*Book, *captureNotifier) {
	book := NewBook()
	capture := &captureNotifier{}
	book.SetNotifier(capture)
	return book, capture
}

func TestBook_PlaceOrder(t *testing.T) {
	book, capture := newTestBook()

	id, err := book.PlaceOrder("alice", amount(100), amount(200), common.Buy)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	order, ok := book.GetOrder(id)
	require.True(t, ok)
	assert.Equal(t, common.Active, order.Status)

	assert.Equal(t, uint64(1), book.TraderStats("alice").OrderCount)
	assert.Equal(t, common.BookStats{Placed: 1}, book.Stats())

	placed := capture.byKind(notify.OrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, uint64(1), placed[0].(notify.PlacedEvent).OrderID)
}

func TestBook_PlaceOrder_InvalidAmount(t *testing.T) {
	book, capture := newTestBook()

	_, err := book.PlaceOrder("alice", amount(0), amount(200), common.Buy)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = book.PlaceOrder("alice", amount(100), amount(0), common.Buy)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// A failed placement moves nothing: no counters, no events, no id.
	assert.Equal(t, common.BookStats{}, book.Stats())
	assert.Zero(t, book.TraderStats("alice").OrderCount)
	assert.Empty(t, capture.events)

	id, err := book.PlaceOrder("alice", amount(1), amount(1), common.Buy)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestBook_CancelOrder(t *testing.T) {
	book, capture := newTestBook()

	id, err := book.PlaceOrder("alice", amount(100), amount(200), common.Sell)
	require.NoError(t, err)

	require.NoError(t, book.CancelOrder("alice", id))

	order, ok := book.GetOrder(id)
	require.True(t, ok)
	assert.Equal(t, common.Cancelled, order.Status)
	assert.Equal(t, common.BookStats{Placed: 1, Cancelled: 1}, book.Stats())

	cancelled := capture.byKind(notify.OrderCancelled)
	require.Len(t, cancelled, 1)
	assert.NotEmpty(t, cancelled[0].(notify.CancelledEvent).Reason)
}

func TestBook_CancelOrder_Unauthorized(t *testing.T) {
	book, _ := newTestBook()

	id, err := book.PlaceOrder("alice", amount(100), amount(200), common.Sell)
	require.NoError(t, err)

	assert.ErrorIs(t, book.CancelOrder("mallory", id), ErrUnauthorized)

	// The order survives the attempt untouched.
	order, _ := book.GetOrder(id)
	assert.Equal(t, common.Active, order.Status)
	assert.Equal(t, common.BookStats{Placed: 1}, book.Stats())
}

func TestBook_CancelOrder_NotFound(t *testing.T) {
	book, _ := newTestBook()

	// Never issued.
	assert.ErrorIs(t, book.CancelOrder("alice", 42), ErrOrderNotFound)
	assert.ErrorIs(t, book.CancelOrder("alice", 0), ErrOrderNotFound)

	// Already cancelled reports the same error kind as never existed.
	id, err := book.PlaceOrder("alice", amount(1), amount(1), common.Buy)
	require.NoError(t, err)
	require.NoError(t, book.CancelOrder("alice", id))
	assert.ErrorIs(t, book.CancelOrder("alice", id), ErrOrderNotFound)

	// So does already matched.
	buyID, err := book.PlaceOrder("alice", amount(100), amount(200), common.Buy)
	require.NoError(t, err)
	sellID, err := book.PlaceOrder("bob", amount(100), amount(100), common.Sell)
	require.NoError(t, err)
	matched, err := book.MatchOrders([]uint64{buyID}, []uint64{sellID})
	require.NoError(t, err)
	require.Equal(t, uint64(1), matched)
	assert.ErrorIs(t, book.CancelOrder("alice", buyID), ErrOrderNotFound)

	assert.Equal(t, common.BookStats{Placed: 3, Matched: 1, Cancelled: 1}, book.Stats())
}

func TestBook_MatchOrders_BatchSize(t *testing.T) {
	book, _ := newTestBook()

	_, err := book.MatchOrders([]uint64{1, 2}, []uint64{3})
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	matched, err := book.MatchOrders(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, matched)
}

func TestBook_MatchOrders_AllPairsInvalid(t *testing.T) {
	book, capture := newTestBook()

	matched, err := book.MatchOrders([]uint64{10, 11}, []uint64{20, 21})
	require.NoError(t, err)
	assert.Zero(t, matched)
	assert.Equal(t, common.BookStats{}, book.Stats())

	// The batch still emits exactly one summary event.
	processed := capture.byKind(notify.OrdersProcessed)
	require.Len(t, processed, 1)
	summary := processed[0].(notify.ProcessedEvent)
	assert.Equal(t, 2, summary.Submitted)
	assert.Zero(t, summary.Matched)
}

func TestBook_MatchOrders_MixedBatch(t *testing.T) {
	book, capture := newTestBook()

	buy1, err := book.PlaceOrder("alice", amount(100), amount(200), common.Buy)
	require.NoError(t, err)
	sell1, err := book.PlaceOrder("bob", amount(100), amount(100), common.Sell)
	require.NoError(t, err)
	buy2, err := book.PlaceOrder("alice", amount(100), amount(150), common.Buy)
	require.NoError(t, err)
	sell2, err := book.PlaceOrder("bob", amount(50), amount(50), common.Sell)
	require.NoError(t, err)

	// Second pair fails the equal-base rule, batch itself succeeds.
	matched, err := book.MatchOrders([]uint64{buy1, buy2}, []uint64{sell1, sell2})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), matched)

	assert.Len(t, capture.byKind(notify.OrderMatched), 1)
	require.Len(t, capture.byKind(notify.OrdersProcessed), 1)

	// Failed pair remains Active on both sides.
	order, _ := book.GetOrder(buy2)
	assert.Equal(t, common.Active, order.Status)
	order, _ = book.GetOrder(sell2)
	assert.Equal(t, common.Active, order.Status)
}

func TestBook_EndToEnd(t *testing.T) {
	book, _ := newTestBook()

	buyID, err := book.PlaceOrder("traderA", amount(100), amount(200), common.Buy)
	require.NoError(t, err)
	sellID, err := book.PlaceOrder("traderB", amount(100), amount(100), common.Sell)
	require.NoError(t, err)

	matched, err := book.MatchOrders([]uint64{buyID}, []uint64{sellID})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), matched)

	assert.Equal(t, common.BookStats{Placed: 2, Matched: 1, Cancelled: 0}, book.Stats())

	buy, ok := book.GetOrder(buyID)
	require.True(t, ok)
	assert.NotEqual(t, common.Active, buy.Status)
	sell, ok := book.GetOrder(sellID)
	require.True(t, ok)
	assert.NotEqual(t, common.Active, sell.Status)

	assert.Equal(t, amount(100), book.TraderStats("traderA").SettledBalance)
	assert.Equal(t, amount(200), book.TraderStats("traderB").SettledBalance)
	assert.Empty(t, book.OpenOrders(0))
}

func TestBook_ConcurrentCancel_ExactlyOneWinner(t *testing.T) {
	book, _ := newTestBook()

	const attempts = 50
	for a := 0; a < attempts; a++ {
		id, err := book.PlaceOrder("alice", amount(1), amount(1), common.Buy)
		require.NoError(t, err)

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- book.CancelOrder("alice", id)
			}()
		}
		wg.Wait()
		close(errs)

		var won, lost int
		for err := range errs {
			if err == nil {
				won++
			} else {
				require.ErrorIs(t, err, ErrOrderNotFound)
				lost++
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, 1, lost)
	}

	assert.Equal(t, uint64(attempts), book.Stats().Cancelled)
}

func TestBook_ConcurrentCancelVsMatch(t *testing.T) {
	book, _ := newTestBook()

	const attempts = 50
	for a := 0; a < attempts; a++ {
		buyID, err := book.PlaceOrder("alice", amount(100), amount(200), common.Buy)
		require.NoError(t, err)
		sellID, err := book.PlaceOrder("bob", amount(100), amount(100), common.Sell)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var cancelErr error
		var matched uint64
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancelErr = book.CancelOrder("bob", sellID)
		}()
		go func() {
			defer wg.Done()
			matched, _ = book.MatchOrders([]uint64{buyID}, []uint64{sellID})
		}()
		wg.Wait()

		sell, ok := book.GetOrder(sellID)
		require.True(t, ok)
		if cancelErr == nil {
			// Cancel won; the pair must not have matched.
			assert.Zero(t, matched)
			assert.Equal(t, common.Cancelled, sell.Status)
			buy, _ := book.GetOrder(buyID)
			assert.Equal(t, common.Active, buy.Status)
		} else {
			require.ErrorIs(t, cancelErr, ErrOrderNotFound)
			assert.Equal(t, uint64(1), matched)
			assert.Equal(t, common.Matched, sell.Status)
		}
	}

	stats := book.Stats()
	assert.Equal(t, uint64(attempts), stats.Matched+stats.Cancelled)
}

func TestBook_ConcurrentDisjointMatches(t *testing.T) {
	book, _ := newTestBook()

	const pairs = 64
	buyIDs := make([]uint64, pairs)
	sellIDs := make([]uint64, pairs)
	for i := 0; i < pairs; i++ {
		var err error
		buyIDs[i], err = book.PlaceOrder("alice", amount(100), amount(200), common.Buy)
		require.NoError(t, err)
		sellIDs[i], err = book.PlaceOrder("bob", amount(100), amount(100), common.Sell)
		require.NoError(t, err)
	}

	// Disjoint pairs submitted from many concurrent batches must all land.
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			matched, err := book.MatchOrders([]uint64{buyIDs[i]}, []uint64{sellIDs[i]})
			assert.NoError(t, err)
			assert.Equal(t, uint64(1), matched)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(pairs), book.Stats().Matched)
	assert.Empty(t, book.OpenOrders(0))
}

func TestBook_ConcurrentPlacements(t *testing.T) {
	book, _ := newTestBook()

	const (
		goroutines = 16
		perWorker  = 100
	)

	var wg sync.WaitGroup
	ids := make(chan uint64, goroutines*perWorker)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := book.PlaceOrder("alice", amount(1), amount(1), common.Sell)
				assert.NoError(t, err)
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, goroutines*perWorker)
	assert.Equal(t, uint64(goroutines*perWorker), book.Stats().Placed)
	assert.Equal(t, uint64(goroutines*perWorker), book.TraderStats("alice").OrderCount)
}
