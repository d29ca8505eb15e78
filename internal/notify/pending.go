// Package notify decides which incoming alerts deserve the user's attention
// and fires the notification side effects for them.
package notify

import "sync"

// PendingPosts holds ids of alerts this client submitted that have not yet
// come back through the feed.
type PendingPosts struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewPendingPosts() *PendingPosts {
	return &PendingPosts{ids: make(map[string]struct{})}
}

func (p *PendingPosts) Add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[id] = struct{}{}
}

// Take removes id and reports whether it was pending
func (p *PendingPosts) Take(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.ids[id]; !ok {
		return false
	}
	delete(p.ids, id)
	return true
}

// Remove withdraws an id whose write failed
func (p *PendingPosts) Remove(id string) {
	p.Take(id)
}

func (p *PendingPosts) Contains(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[id]
	return ok
}

func (p *PendingPosts) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}
