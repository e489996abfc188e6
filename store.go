package agentpay

import "sync"

// pendingStore is the in-memory table of pending payments keyed by the
// gateway-assigned payment identifier. Entries are created by the handshake,
// restatused by verification and webhook deliveries, and removed only when
// the whole store is cleared on Destroy.
//
// Concurrent status updates for the same payment are not ordered: the last
// write to complete wins, not the last one initiated.
type pendingStore struct {
	mu       sync.RWMutex
	payments map[string]PendingPayment
}

func newPendingStore() *pendingStore {
	return &pendingStore{payments: make(map[string]PendingPayment)}
}

func (s *pendingStore) put(paymentID string, p PendingPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[paymentID] = p
}

func (s *pendingStore) get(paymentID string) (PendingPayment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	return p, ok
}

// setStatus overwrites the stored status and reports whether the payment was
// present. Unknown identifiers are ignored.
func (s *pendingStore) setStatus(paymentID string, status PaymentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return false
	}
	p.Status = status
	s.payments[paymentID] = p
	return true
}

func (s *pendingStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = make(map[string]PendingPayment)
}

func (s *pendingStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}
