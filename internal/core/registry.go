package core

import (
	"cmp"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Session is a live connected user as tracked by the registry.
type Session struct {
	ID          uint64
	Name        string
	ConnectedAt time.Time
}

// DefaultName returns the display name assigned to a new session.
func DefaultName(id uint64) string {
	return "User " + strconv.FormatUint(id, 10)
}

// Registry tracks live sessions by id.
type Registry struct {
	alloc *Allocator

	mu       sync.RWMutex
	sessions map[uint64]Session
}

// NewRegistry creates an empty registry drawing ids from alloc.
func NewRegistry(alloc *Allocator) *Registry {
	if alloc == nil {
		alloc = NewAllocator()
	}
	return &Registry{
		alloc:    alloc,
		sessions: make(map[uint64]Session),
	}
}

// Add allocates a new session and stores it.
func (r *Registry) Add() Session {
	id := r.alloc.Next()
	sess := Session{
		ID:          id,
		Name:        DefaultName(id),
		ConnectedAt: time.Now(),
	}

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	return sess
}

// Remove deletes the session with the given id. Removing an unknown id is a no-op.
func (r *Registry) Remove(id uint64) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return sess, ok
}

// NameOf returns the name of a live session.
func (r *Registry) NameOf(id uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	return sess.Name, ok
}

// NamesExcept returns the names of all sessions other than excluded, in id order.
func (r *Registry) NamesExcept(excluded uint64) []string {
	r.mu.RLock()
	others := make([]Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		if id != excluded {
			others = append(others, sess)
		}
	}
	r.mu.RUnlock()

	sortByID(others)
	names := make([]string, 0, len(others))
	for _, sess := range others {
		names = append(names, sess.Name)
	}
	return names
}

// Snapshot returns every live session in id order.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	all := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess)
	}
	r.mu.RUnlock()

	sortByID(all)
	return all
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func sortByID(sessions []Session) {
	slices.SortFunc(sessions, func(a, b Session) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
