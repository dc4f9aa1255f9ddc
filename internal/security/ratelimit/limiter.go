// Package ratelimit implements a per-caller sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	hits     []time.Time
	lastSeen time.Time
}

type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxReqs int
	span    time.Duration
	done    chan struct{}
}

func NewLimiter(maxRequests int, span time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		maxReqs: maxRequests,
		span:    span,
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow records a request for the caller and reports whether it fits in the
// current window. An empty key is never limited.
func (l *Limiter) Allow(key string) bool {
	if key == "" || l.maxReqs <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	w.lastSeen = now

	cutoff := now.Add(-l.span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept

	if len(w.hits) >= l.maxReqs {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			stale := time.Now().Add(-15 * time.Minute)
			l.mu.Lock()
			for key, w := range l.windows {
				if w.lastSeen.Before(stale) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *Limiter) Stop() {
	close(l.done)
}
