package core

import "sync/atomic"

// Allocator hands out session identifiers. Identifiers start at 1 and are
// never reused for the lifetime of the allocator.
type Allocator struct {
	last atomic.Uint64
}

// NewAllocator creates an allocator whose first identifier is 1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next returns a fresh identifier.
func (a *Allocator) Next() uint64 {
	id := a.last.Add(1)
	if id == 0 {
		panic("core: session id counter overflow")
	}
	return id
}
