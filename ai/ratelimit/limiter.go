// Package ratelimit provides per-agent request rate limiting.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per agent, created lazily with a shared
// rate and burst. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLimiter creates a limiter allowing perSecond requests with the given
// burst per agent. perSecond <= 0 disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *Limiter) limiterFor(agentID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[agentID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[agentID] = lim
	}
	return lim
}

// Allow reports whether a request for the agent may proceed now. It never
// blocks, so it is safe on the dispatch path.
func (l *Limiter) Allow(agentID string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	return l.limiterFor(agentID).Allow()
}

// Wait blocks until the agent may proceed or the context is done.
func (l *Limiter) Wait(ctx context.Context, agentID string) error {
	if l == nil || l.limit <= 0 {
		return nil
	}
	return l.limiterFor(agentID).Wait(ctx)
}
