/*
Package presence tracks which users are online.

The Registry maps a user ID to exactly one live connection handle. A newer connection for the
same user replaces the older one, and removal is compare-and-delete so a late disconnect from a
superseded connection never evicts the current one. Every operation is a short critical section
with no I/O; callers broadcast status changes after the call returns.
*/
package presence

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Handle is a registered connection. IDs must be unique per connection.
type Handle interface {
	ID() string
}

// Registry is the process-wide user to connection mapping. The zero value is not usable;
// create one with NewRegistry.
type Registry[H Handle] struct {
	mu      sync.RWMutex
	entries map[string]H
}

// NewRegistry returns an empty Registry.
func NewRegistry[H Handle]() *Registry[H] {
	return &Registry[H]{entries: make(map[string]H)}
}

// Register installs h as the handle for userID and returns the handle it replaced, if any.
// The caller is responsible for closing the replaced handle.
func (r *Registry[H]) Register(userID string, h H) (prev H, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, replaced = r.entries[userID]
	r.entries[userID] = h

	if replaced && prev.ID() == h.ID() {
		// Re-registering the same connection is not a replacement.
		var zero H
		return zero, false
	}

	return prev, replaced
}

// Unregister removes userID only if its current handle is h.
// It returns false for a stale handle, leaving the newer registration intact.
func (r *Registry[H]) Unregister(userID string, h H) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[userID]
	if !ok || current.ID() != h.ID() {
		return false
	}

	delete(r.entries, userID)
	return true
}

// IsOnline reports whether userID has a registered handle.
func (r *Registry[H]) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[userID]
	return ok
}

// Lookup returns the handle registered for userID.
func (r *Registry[H]) Lookup(userID string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[userID]
	return h, ok
}

// Snapshot returns the sorted IDs of all online users.
func (r *Registry[H]) Snapshot() []string {
	r.mu.RLock()
	ids := lo.Keys(r.entries)
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Handles returns every registered handle.
func (r *Registry[H]) Handles() []H {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.entries)
}

// Len returns the number of online users.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
