package engine

import "sync/atomic"

// Allocator hands out order identifiers. Ids start at 1 and are strictly
// increasing; two concurrent callers never observe the same value. Id 0 is
// reserved as the absent sentinel and is never issued.
type Allocator struct {
	last atomic.Uint64
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next returns the next unused identifier.
func (a *Allocator) Next() uint64 {
	return a.last.Add(1)
}

// Current returns the highest identifier issued so far, 0 if none.
func (a *Allocator) Current() uint64 {
	return a.last.Load()
}
