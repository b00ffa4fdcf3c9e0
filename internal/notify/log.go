package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSink writes every event to the structured log.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, event Event) error {
	switch e := event.(type) {
	case PlacedEvent:
		log.Info().
			Uint64("order_id", e.OrderID).
			Str("owner", e.Owner).
			Str("side", e.Side.String()).
			Str("base", e.BaseAmount.String()).
			Str("quote", e.QuoteAmount.String()).
			Msg("order placed")
	case CancelledEvent:
		log.Info().
			Uint64("order_id", e.OrderID).
			Str("owner", e.Owner).
			Str("reason", e.Reason).
			Msg("order cancelled")
	case MatchedEvent:
		log.Info().
			Uint64("buy_id", e.BuyID).
			Uint64("sell_id", e.SellID).
			Str("buyer", e.Buyer).
			Str("seller", e.Seller).
			Str("buyer_credit", e.BuyerCredit.String()).
			Str("seller_credit", e.SellerCredit.String()).
			Msg("orders matched")
	case ProcessedEvent:
		log.Info().
			Int("submitted", e.Submitted).
			Uint64("matched", e.Matched).
			Msg("batch processed")
	default:
		log.Info().
			Str("kind", event.GetKind().String()).
			Str("uuid", event.GetID()).
			Msg("event")
	}
	return nil
}
