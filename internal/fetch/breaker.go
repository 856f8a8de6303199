package fetch

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// breaker tracks consecutive retryable failures per upstream host and
// short-circuits calls while a host is considered down. State is shared by
// every goroutine fetching through the same Fetcher.
type breaker struct {
	clock     clockwork.Clock
	threshold int
	cooldown  time.Duration

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	failures int
	open     bool
	openedAt time.Time
}

func newBreaker(threshold int, cooldown time.Duration, clock clockwork.Clock) *breaker {
	return &breaker{
		clock:     clock,
		threshold: threshold,
		cooldown:  cooldown,
		hosts:     make(map[string]*hostState),
	}
}

// allow reports whether a request to host may proceed. While a host is open
// and inside its cooldown every call is rejected; once the cooldown elapses
// requests go through again as trials, and the next recorded outcome decides
// whether the circuit closes or reopens with a fresh timer.
func (b *breaker) allow(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.hosts[host]
	if s == nil || !s.open {
		return true
	}
	return b.clock.Since(s.openedAt) >= b.cooldown
}

// recordFailure counts one retryable failure and opens the circuit at the
// threshold. A failed trial while open restarts the cooldown. It reports
// whether the circuit is open afterwards.
func (b *breaker) recordFailure(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.hosts[host]
	if s == nil {
		s = &hostState{}
		b.hosts[host] = s
	}

	s.failures++
	if s.open || s.failures >= b.threshold {
		s.open = true
		s.openedAt = b.clock.Now()
	}
	return s.open
}

// recordSuccess closes the circuit and resets the failure count.
func (b *breaker) recordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s := b.hosts[host]; s != nil {
		s.failures = 0
		s.open = false
	}
}
