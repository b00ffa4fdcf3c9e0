package common

import "math/big"

// TraderStats is the per-identity bookkeeping view. SettledBalance only
// ever grows; it accumulates credits from successful matches.
type TraderStats struct {
	OrderCount     uint64
	SettledBalance *big.Int
}

// BookStats are the process-wide counters. Each counts only operations
// that succeeded.
type BookStats struct {
	Placed    uint64
	Matched   uint64
	Cancelled uint64
}
