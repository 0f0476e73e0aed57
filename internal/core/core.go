// Package core holds small concurrency helpers shared by the server,
// transport and supervisor packages.
package core

import (
	"sync"

	"github.com/celzero/xaxlib/internal/log"
)

// Recover logs and swallows a panic instead of crashing the process. Call it
// deferred at the top of every goroutine that isn't already supervised by an
// errgroup, mirroring how per-connection goroutines must never be allowed to
// take the whole daemon down with them.
func Recover(tag string) {
	if r := recover(); r != nil {
		log.E("core: recovered panic in %s: %v", tag, r)
	}
}

// ConnTracker counts in-flight connections per transport so a driver's
// shutdown path can log how many streams it is waiting to drain.
type ConnTracker struct {
	mu   sync.Mutex
	wg   sync.WaitGroup
	live map[string]int
}

// NewConnTracker returns an empty tracker.
func NewConnTracker() *ConnTracker {
	return &ConnTracker{live: make(map[string]int)}
}

// Track registers one in-flight connection under the given transport name;
// the returned func must be deferred to mark it done.
func (t *ConnTracker) Track(transport string) (done func()) {
	t.mu.Lock()
	t.live[transport]++
	t.mu.Unlock()
	t.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.live[transport]--
			t.mu.Unlock()
			t.wg.Done()
		})
	}
}

// Live returns the current in-flight count for a transport.
func (t *ConnTracker) Live(transport string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live[transport]
}

// Wait blocks until every tracked connection has called its done func.
func (t *ConnTracker) Wait() {
	t.wg.Wait()
}
