package hyperliquid

import (
	"sync"
	"time"
)

// nonceSource hands out millisecond nonces that strictly increase even when
// the clock stalls, steps backwards, or several actions are signed within the
// same millisecond.
type nonceSource struct {
	mu    sync.Mutex
	last  int64
	clock func() time.Time
}

func newNonceSource(clock func() time.Time) *nonceSource {
	if clock == nil {
		clock = time.Now
	}
	return &nonceSource{clock: clock}
}

func (n *nonceSource) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.clock().UnixMilli()
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return now
}
