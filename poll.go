package xnet

import "time"

// reconnectBackoff implements exponential back-off between a client
// connection's reconnect attempts, so a peer that stays down doesn't
// turn on_error into a tight dial loop. Call Reset() after a
// successful reconnect to return to the fast interval.
type reconnectBackoff struct {
	cur    time.Duration
	fast   time.Duration
	steady time.Duration
	next   time.Time
}

func newReconnectBackoff(fast, steady time.Duration) *reconnectBackoff {
	if fast <= 0 {
		fast = DefaultReconnectFastInterval
	}
	if steady < fast {
		steady = fast
	}
	return &reconnectBackoff{cur: fast, fast: fast, steady: steady}
}

// Ready reports whether enough time has passed since the last failed
// attempt to try again.
func (b *reconnectBackoff) Ready(now time.Time) bool {
	return !now.Before(b.next)
}

// Failed records a failed attempt and backs off exponentially up to
// steady.
func (b *reconnectBackoff) Failed(now time.Time) {
	b.next = now.Add(b.cur)
	if b.cur < b.steady {
		b.cur *= 2
		if b.cur > b.steady {
			b.cur = b.steady
		}
	}
}

// Reset moves the interval back to the fast value, called after any
// successful reconnect.
func (b *reconnectBackoff) Reset() {
	b.cur = b.fast
	b.next = time.Time{}
}
