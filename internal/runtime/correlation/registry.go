// Package correlation implements the in-process table joining outstanding
// requests to their eventual replies. Each outstanding correlation id owns a
// single-fulfillment wait handle; the handle is removed by whichever of
// fulfillment or timeout-eviction happens first.
package correlation

import (
	"sync"

	errspkg "github.com/singularis/chater/internal/runtime/errors"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
)

// Handle is the single-write response slot for one outstanding correlation
// id. It is completed at most once; late or duplicate completions are no-ops.
type Handle struct {
	owner string

	once  sync.Once
	mu    sync.Mutex
	value map[string]any
	ch    chan struct{}
}

func newHandle(owner string) *Handle {
	return &Handle{owner: owner, ch: make(chan struct{})}
}

// Done is closed when the handle has been fulfilled.
func (h *Handle) Done() <-chan struct{} { return h.ch }

// Value returns the delivered response. Valid only after Done is closed.
func (h *Handle) Value() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

// Owner returns the user the handle was registered for.
func (h *Handle) Owner() string { return h.owner }

func (h *Handle) complete(value map[string]any) {
	h.once.Do(func() {
		h.mu.Lock()
		h.value = value
		h.mu.Unlock()
		close(h.ch)
	})
}

// Registry is the thread-safe correlation table. It is shared by N concurrent
// bridge callers and one reply listener; mutations on a single id are atomic
// with respect to each other.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]*Handle
	logger  loggingpkg.ServiceLogger
}

// New constructs an empty registry. The logger may be nil.
func New(logger loggingpkg.ServiceLogger) *Registry {
	return &Registry{
		waiters: make(map[string]*Handle),
		logger:  logger,
	}
}

// Register inserts a fresh empty slot for id owned by owner.
func (r *Registry) Register(id, owner string) (*Handle, error) {
	if id == "" {
		return nil, errspkg.ErrIDRequired
	}
	if owner == "" {
		return nil, errspkg.ErrOwnerRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.waiters[id]; exists {
		return nil, errspkg.ErrDuplicateID
	}
	h := newHandle(owner)
	r.waiters[id] = h
	return h, nil
}

// Fulfill delivers value to the waiter registered for id. It returns false
// when no slot exists (normal after timeout-eviction, or for foreign ids) and
// when the embedded user identity does not match the registered owner. Only
// the first fulfillment of an id wins; the slot is removed on success.
func (r *Registry) Fulfill(id, owner string, value map[string]any) bool {
	r.mu.Lock()
	h, ok := r.waiters[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if h.owner != owner {
		r.mu.Unlock()
		if r.logger != nil {
			r.logger.Error("Dropping reply for mismatched owner", nil, loggingpkg.LogFields{
				"correlation_id": id,
				"owner":          h.owner,
				"reply_user":     owner,
			})
		}
		return false
	}
	delete(r.waiters, id)
	r.mu.Unlock()

	h.complete(value)
	return true
}

// Evict removes the slot for id unconditionally. Safe to race against
// Fulfill: the waiting caller observes exactly one of value delivery or
// timeout, never both.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	delete(r.waiters, id)
	r.mu.Unlock()
}

// Outstanding reports the number of registered waiters.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
