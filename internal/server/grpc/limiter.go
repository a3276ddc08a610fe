package grpc

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 1024
)

type peerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// peerLimiter keeps one token bucket per client address. A nil limiter or a
// non-positive limit allows everything.
type peerLimiter struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	peers map[string]*peerEntry
	calls int
	now   func() time.Time
}

func newPeerLimiter(rps float64, burst int) *peerLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &peerLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		peers: make(map[string]*peerEntry),
		now:   time.Now,
	}
}

func (l *peerLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.calls++
	if l.calls%limiterSweepEvery == 0 {
		for k, e := range l.peers {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.peers, k)
			}
		}
	}

	e, ok := l.peers[key]
	if !ok {
		e = &peerEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.peers[key] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// peerHost strips the port so that one client is one bucket.
func peerHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
