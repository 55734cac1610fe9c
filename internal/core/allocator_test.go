package core

import (
	"sync"
	"testing"
)

func TestAllocatorStartsAtOne(t *testing.T) {
	a := NewAllocator()
	if id := a.Next(); id != 1 {
		t.Fatalf("first id = %d, want 1", id)
	}
	if id := a.Next(); id != 2 {
		t.Fatalf("second id = %d, want 2", id)
	}
}

func TestAllocatorConcurrentIDsAreUnique(t *testing.T) {
	const (
		workers = 32
		perWork = 200
	)

	a := NewAllocator()
	ids := make(chan uint64, workers*perWork)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWork {
				ids <- a.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]struct{}, workers*perWork)
	for id := range ids {
		if id == 0 {
			t.Fatalf("allocator returned zero id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != workers*perWork {
		t.Fatalf("got %d ids, want %d", len(seen), workers*perWork)
	}
}
