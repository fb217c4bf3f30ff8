package sweep

import "sync"

// Broadcaster is the in-process "sync requested" signal: any component that
// notices pending work can Notify, and listeners (the watch loop) wake up
// and run an opportunistic sweep. Notifications carry no payload and
// coalesce — a slow listener sees at most one pending wake-up.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[chan struct{}]struct{}
}

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe registers a listener channel. Call the returned cancel func to
// deregister; the channel is closed afterwards.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.listeners[ch]; ok {
			delete(b.listeners, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Notify wakes every listener without blocking.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
