package engine

import (
	"math/big"

	"vidar/internal/common"
)

// Settlement describes the outcome of one successful pairwise match.
type Settlement struct {
	BuyID        uint64
	SellID       uint64
	Buyer        string
	Seller       string
	BuyerCredit  *big.Int // the sell order's base amount
	SellerCredit *big.Int // the buy order's quote amount
}

// Matcher executes exact-amount matches between an existing buy and sell
// order. Matches on disjoint id pairs are fully independent; two matches
// interfere only when they reference a shared id, in which case the status
// reservation decides a single winner.
type Matcher struct {
	store *Store
	stats *Aggregator
}

func NewMatcher(store *Store, stats *Aggregator) *Matcher {
	return &Matcher{store: store, stats: stats}
}

// TryMatch attempts to match the order at buyID against the order at
// sellID. The pair is directional: buyID must resolve to a Buy order. The
// second id's side is deliberately not validated. The match succeeds only
// when buy.quote >= sell.base and buy.base == sell.base; there are no
// partial fills and a failed pair leaves both orders Active.
//
// On success both orders move to Matched, the buyer is credited the sell
// order's base amount and the seller the buy order's quote amount. Every
// failure branch is a read-only no-op.
func (m *Matcher) TryMatch(buyID, sellID uint64) (Settlement, bool) {
	buy, ok := m.store.record(buyID)
	if !ok {
		return Settlement{}, false
	}
	sell, ok := m.store.record(sellID)
	if !ok {
		return Settlement{}, false
	}

	if buy.side != common.Buy {
		return Settlement{}, false
	}
	if buy.quote.Cmp(sell.base) < 0 {
		return Settlement{}, false
	}
	if buy.base.Cmp(sell.base) != 0 {
		return Settlement{}, false
	}

	// Reserve the buy leg first. If the sell leg is lost to a concurrent
	// cancel or another match, release the reservation and report no
	// match. A pair naming the same id twice always fails here: the
	// second swap sees the reservation.
	if !buy.status.CompareAndSwap(int32(common.Active), statusMatchPending) {
		return Settlement{}, false
	}
	if !sell.status.CompareAndSwap(int32(common.Active), int32(common.Matched)) {
		buy.status.CompareAndSwap(statusMatchPending, int32(common.Active))
		return Settlement{}, false
	}
	buy.status.Store(int32(common.Matched))

	m.store.retire(buyID)
	m.store.retire(sellID)

	buyerCredit := new(big.Int).Set(sell.base)
	sellerCredit := new(big.Int).Set(buy.quote)
	m.stats.Credit(buy.owner, buyerCredit)
	m.stats.Credit(sell.owner, sellerCredit)

	return Settlement{
		BuyID:        buyID,
		SellID:       sellID,
		Buyer:        buy.owner,
		Seller:       sell.owner,
		BuyerCredit:  buyerCredit,
		SellerCredit: sellerCredit,
	}, true
}
