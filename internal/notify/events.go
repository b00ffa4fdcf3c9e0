package notify

import (
	"math/big"
	"time"

	"github.com/google/uuid"

	"vidar/internal/common"
)

type Kind int

const (
	OrderPlaced Kind = iota
	OrderCancelled
	OrderMatched
	OrdersProcessed
)

func (k Kind) String() string {
	switch k {
	case OrderPlaced:
		return "order_placed"
	case OrderCancelled:
		return "order_cancelled"
	case OrderMatched:
		return "order_matched"
	case OrdersProcessed:
		return "orders_processed"
	}
	return "unknown"
}

// Event is a one-way notification emitted after a successful mutation.
// Events are consumed by observers and are not part of the request
// contract; a slow or absent observer never fails the operation.
type Event interface {
	GetKind() Kind
	GetID() string
}

type BaseEvent struct {
	UUID   string    `json:"uuid"`
	TypeOf Kind      `json:"kind"`
	At     time.Time `json:"at"`
}

func (e BaseEvent) GetKind() Kind { return e.TypeOf }
func (e BaseEvent) GetID() string { return e.UUID }

func newBase(kind Kind) BaseEvent {
	return BaseEvent{
		UUID:   uuid.New().String(),
		TypeOf: kind,
		At:     time.Now(),
	}
}

type PlacedEvent struct {
	BaseEvent
	OrderID     uint64      `json:"order_id"`
	Owner       string      `json:"owner"`
	BaseAmount  *big.Int    `json:"base_amount"`
	QuoteAmount *big.Int    `json:"quote_amount"`
	Side        common.Side `json:"side"`
}

func NewPlacedEvent(o common.Order) PlacedEvent {
	return PlacedEvent{
		BaseEvent:   newBase(OrderPlaced),
		OrderID:     o.ID,
		Owner:       o.Owner,
		BaseAmount:  o.BaseAmount,
		QuoteAmount: o.QuoteAmount,
		Side:        o.Side,
	}
}

type CancelledEvent struct {
	BaseEvent
	OrderID uint64 `json:"order_id"`
	Owner   string `json:"owner"`
	Reason  string `json:"reason"`
}

func NewCancelledEvent(o common.Order, reason string) CancelledEvent {
	return CancelledEvent{
		BaseEvent: newBase(OrderCancelled),
		OrderID:   o.ID,
		Owner:     o.Owner,
		Reason:    reason,
	}
}

type MatchedEvent struct {
	BaseEvent
	BuyID        uint64   `json:"buy_id"`
	SellID       uint64   `json:"sell_id"`
	Buyer        string   `json:"buyer"`
	Seller       string   `json:"seller"`
	BuyerCredit  *big.Int `json:"buyer_credit"`
	SellerCredit *big.Int `json:"seller_credit"`
}

func NewMatchedEvent(buyID, sellID uint64, buyer, seller string, buyerCredit, sellerCredit *big.Int) MatchedEvent {
	return MatchedEvent{
		BaseEvent:    newBase(OrderMatched),
		BuyID:        buyID,
		SellID:       sellID,
		Buyer:        buyer,
		Seller:       seller,
		BuyerCredit:  buyerCredit,
		SellerCredit: sellerCredit,
	}
}

// ProcessedEvent summarises one batch: how many pairs were submitted and
// how many of them matched.
type ProcessedEvent struct {
	BaseEvent
	Submitted int    `json:"submitted"`
	Matched   uint64 `json:"matched"`
}

func NewProcessedEvent(submitted int, matched uint64) ProcessedEvent {
	return ProcessedEvent{
		BaseEvent: newBase(OrdersProcessed),
		Submitted: submitted,
		Matched:   matched,
	}
}
