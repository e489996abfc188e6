package agentpay

import "sync"

// PaymentCallback handles a dispatched payment event. Callbacks run
// synchronously within the dispatch call, so they should be fast; move longer
// work onto a goroutine inside the callback.
type PaymentCallback func(PaymentEvent)

type notifierEntry struct {
	id int
	cb PaymentCallback
}

// notifier fans a payment event out to registered callbacks in registration
// order, at least once per dispatch.
type notifier struct {
	mu      sync.Mutex
	nextID  int
	entries []notifierEntry
}

// subscribe registers cb and returns a handle that removes it again.
// Unsubscribing twice is a no-op.
func (n *notifier) subscribe(cb PaymentCallback) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.entries = append(n.entries, notifierEntry{id: id, cb: cb})
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, entry := range n.entries {
			if entry.id == id {
				n.entries = append(n.entries[:i], n.entries[i+1:]...)
				return
			}
		}
	}
}

func (n *notifier) dispatch(ev PaymentEvent) {
	n.mu.Lock()
	entries := make([]notifierEntry, len(n.entries))
	copy(entries, n.entries)
	n.mu.Unlock()
	for _, entry := range entries {
		entry.cb(ev)
	}
}
