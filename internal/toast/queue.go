// Package toast holds the short-lived in-app notifications shown for new
// alerts. Each toast disappears by itself after a TTL or when dismissed.
package toast

import (
	"sync"
	"time"

	"alertmap/internal/models"
)

// DefaultTTL - время жизни тоста
const DefaultTTL = 5 * time.Second

type entry struct {
	toast models.Toast
	timer *time.Timer
	gen   uint64
}

// Queue is safe for concurrent use. Items are ordered most recent first.
type Queue struct {
	mu       sync.Mutex
	ttl      time.Duration
	items    []*entry
	gen      uint64
	closed   bool
	onChange func()
}

type Option func(*Queue)

// WithTTL overrides DefaultTTL; non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.ttl = ttl
		}
	}
}

// WithOnChange registers a hook called after every mutation, outside the lock.
func WithOnChange(fn func()) Option {
	return func(q *Queue) {
		q.onChange = fn
	}
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue shows t at the top. A toast with the same id is replaced and its
// timer restarts, so an alert never has two toasts.
func (q *Queue) Enqueue(t models.Toast) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	if i := q.indexLocked(t.ID); i >= 0 {
		q.items[i].timer.Stop()
		q.items = append(q.items[:i], q.items[i+1:]...)
	}

	q.gen++
	e := &entry{toast: t, gen: q.gen}
	id, gen := t.ID, e.gen
	e.timer = time.AfterFunc(q.ttl, func() { q.expire(id, gen) })

	q.items = append([]*entry{e}, q.items...)
	q.mu.Unlock()

	q.changed()
}

// Remove dismisses the toast; unknown ids are ignored.
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	if q.closed || !q.removeLocked(id, 0) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.changed()
}

func (q *Queue) expire(id string, gen uint64) {
	q.mu.Lock()
	// Таймер мог сработать уже после замены или Close
	if q.closed || !q.removeLocked(id, gen) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.changed()
}

// removeLocked deletes id; gen != 0 restricts it to that exact entry
func (q *Queue) removeLocked(id string, gen uint64) bool {
	i := q.indexLocked(id)
	if i < 0 {
		return false
	}
	if gen != 0 && q.items[i].gen != gen {
		return false
	}
	q.items[i].timer.Stop()
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true
}

func (q *Queue) indexLocked(id string) int {
	for i, e := range q.items {
		if e.toast.ID == id {
			return i
		}
	}
	return -1
}

// Items returns a copy of the visible toasts, most recent first.
func (q *Queue) Items() []models.Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Toast, len(q.items))
	for i, e := range q.items {
		out[i] = e.toast
	}
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close cancels every timer. The queue keeps its items but ignores further
// mutations; calling Close again is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	for _, e := range q.items {
		e.timer.Stop()
	}
}

func (q *Queue) changed() {
	if q.onChange != nil {
		q.onChange()
	}
}
