package reactor

import "sync"

// completionInbox is the reactor-goroutine-exclusive drain queue for
// closures posted by worker goroutines (§3 CompletionInbox). It is guarded
// by a mutex held only during enqueue/swap — continuations themselves run
// outside the lock, satisfying the invariant in §8.5 that the inbox is
// never inspected while a continuation is executing.
type completionInbox struct {
	mu    sync.Mutex
	items []func()
}

func newCompletionInbox() *completionInbox {
	return &completionInbox{}
}

// push enqueues fn. Safe to call from any goroutine.
func (c *completionInbox) push(fn func()) {
	c.mu.Lock()
	c.items = append(c.items, fn)
	c.mu.Unlock()
}

// drain swaps out the current backlog under the lock, releases it, then
// runs every closure in FIFO order (§4.1 drainCompletions). Only the
// reactor goroutine calls this.
func (c *completionInbox) drain() {
	c.mu.Lock()
	batch := c.items
	c.items = nil
	c.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}
