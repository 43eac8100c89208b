// Package bus is the in-page signal bus other site modules use to announce
// things like a completed login.
package bus

import "sync"

// Signal names published by the authentication module.
const (
	SignalRegistration = "vui:registration"
	SignalLogin        = "vui:login"
)

// Signal is one published occurrence.
type Signal struct {
	Name  string
	Email string
}

// Handler receives signals.
type Handler func(Signal)

// Bus delivers signals synchronously to the handlers subscribed to their name.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
}

type subscription struct {
	id uint64
	h  Handler
}

func New() *Bus {
	return &Bus{handlers: make(map[string][]subscription)}
}

// Subscribe registers h for name and returns a function removing it.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, h: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[name]
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
		if len(subs) == 0 {
			delete(b.handlers, name)
			return
		}
		b.handlers[name] = subs
	}
}

// Publish calls every handler of s.Name and returns how many ran.
func (b *Bus) Publish(s Signal) int {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[s.Name]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.h(s)
	}
	return len(subs)
}

// Len reports how many handlers are subscribed to name.
func (b *Bus) Len(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
