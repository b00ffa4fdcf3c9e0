package common

import (
	"fmt"
	"math/big"
	"time"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

type Status int32

const (
	Active Status = iota
	Cancelled
	Matched
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	case Matched:
		return "matched"
	}
	return "unknown"
}

// Order is a resting request to exchange BaseAmount for QuoteAmount.
// Every field except Status is written once at creation. Id 0 is reserved
// and never issued, so it doubles as the "no such order" sentinel.
type Order struct {
	ID          uint64    // Engine-assigned identifier, strictly increasing
	Owner       string    // Submitter identity, opaque beyond equality
	BaseAmount  *big.Int  // Quantity offered, uint256 range
	QuoteAmount *big.Int  // Quantity requested, uint256 range
	Side        Side      // Order side
	Status      Status    // Lifecycle state
	CreatedAt   time.Time // Time of arrival into the book
}

func (o Order) String() string {
	return fmt.Sprintf(
		`ID:          %d
Owner:       %s
BaseAmount:  %s
QuoteAmount: %s
Side:        %v
Status:      %v
CreatedAt:   %v`,
		o.ID,
		o.Owner,
		o.BaseAmount,
		o.QuoteAmount,
		o.Side,
		o.Status,
		o.CreatedAt.Format(time.RFC3339),
	)
}
