package session

import (
	"sync"

	"todo/internal/service"
)

// Hub tracks the current account and notifies subscribers when it changes.
// Backends embed a Hub to implement service.Identity.Subscribe.
type Hub struct {
	mu      sync.Mutex
	current *service.Account
	subs    map[int]func(*service.Account)
	next    int
}

// Current returns a copy of the current account, or nil when signed out.
func (h *Hub) Current() *service.Account {
	h.mu.Lock()
	defer h.mu.Unlock()
	return clone(h.current)
}

// Subscribe registers handler and immediately delivers the current state.
func (h *Hub) Subscribe(handler func(*service.Account)) (unsubscribe func()) {
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[int]func(*service.Account))
	}
	id := h.next
	h.next++
	h.subs[id] = handler
	current := clone(h.current)
	h.mu.Unlock()

	handler(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish sets the current account and notifies every subscriber.
// Handlers run outside the lock; delivery order across subscribers is unspecified.
func (h *Hub) Publish(acct *service.Account) {
	h.mu.Lock()
	h.current = clone(acct)
	handlers := make([]func(*service.Account), 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(clone(acct))
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func clone(acct *service.Account) *service.Account {
	if acct == nil {
		return nil
	}
	c := *acct
	return &c
}
