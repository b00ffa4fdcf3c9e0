package engine

import "errors"

var (
	ErrInvalidAmount    = errors.New("base and quote amounts must be positive")
	ErrOrderNotFound    = errors.New("order does not exist or is no longer active")
	ErrUnauthorized     = errors.New("caller does not own this order")
	ErrInvalidBatchSize = errors.New("buy and sell id lists differ in length")
)
