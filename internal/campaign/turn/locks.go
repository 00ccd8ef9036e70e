package turn

import "sync"

// Locks grants at most one in-flight operation per campaign. Acquisition
// never blocks: a held lock means a turn or rewind is running and the
// caller must be rejected, not queued. The turn engine and the rewind
// coordinator share one registry so they exclude each other.
type Locks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocks creates an empty lock registry.
func NewLocks() *Locks {
	return &Locks{held: make(map[string]struct{})}
}

// TryAcquire claims the campaign lock, reporting false when already held.
func (l *Locks) TryAcquire(campaignID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[campaignID]; taken {
		return false
	}
	l.held[campaignID] = struct{}{}
	return true
}

// Release frees the campaign lock.
func (l *Locks) Release(campaignID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, campaignID)
}
