package pool

import (
	"sync"
	"time"
)

// Latch is an integer-valued barrier. It starts at N and counts down through
// Notify; waiters unblock when the count reaches zero.
type Latch struct {
	mu    sync.Mutex
	count int
	zero  chan struct{}
}

// NewLatch creates a latch with the given initial count. A count of zero or
// less yields an already-released latch.
func NewLatch(count int) *Latch {
	l := &Latch{
		count: count,
		zero:  make(chan struct{}),
	}
	if count <= 0 {
		close(l.zero)
	}
	return l
}

// Notify decrements the count. Decrements past zero are ignored so a stray
// extra notification cannot corrupt the barrier.
func (l *Latch) Notify() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count <= 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.zero)
	}
}

// Wait blocks until the count reaches zero.
func (l *Latch) Wait() {
	<-l.zero
}

// WaitTimeout blocks until the count reaches zero or the deadline passes,
// and reports whether zero was reached.
func (l *Latch) WaitTimeout(d time.Duration) bool {
	select {
	case <-l.zero:
		return true
	case <-time.After(d):
		return false
	}
}

// Count returns the remaining count.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Notifier guarantees exactly-once latch notification across all exit paths
// of a task closure. Typical use:
//
//	n := pool.NewNotifier(latch)
//	defer n.Done()
type Notifier struct {
	latch *Latch
	once  sync.Once
}

// NewNotifier creates a notifier for the latch. A nil latch yields a no-op
// notifier.
func NewNotifier(latch *Latch) *Notifier {
	return &Notifier{latch: latch}
}

// Done notifies the latch. Only the first call has an effect.
func (n *Notifier) Done() {
	if n.latch == nil {
		return
	}
	n.once.Do(n.latch.Notify)
}
