// Package ratelimit throttles inbound chat messages per sender.
package ratelimit

import (
	"sync"
	"time"
)

// Config controls the limiter. A RequestsPerMinute of 0 disables limiting.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// Limiter counts messages per key inside a fixed one-minute window.
type Limiter struct {
	mu       sync.Mutex
	senders  map[string]*window
	limit    int
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	start time.Time
	count int
}

// NewLimiter starts the stale-entry sweeper when limiting is enabled.
func NewLimiter(cfg Config) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	l := &Limiter{
		senders:  make(map[string]*window),
		limit:    cfg.RequestsPerMinute,
		interval: cfg.CleanupInterval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	if l.limit > 0 {
		go l.cleanup()
	}
	return l
}

// Allow reports whether the sender identified by key may send another message.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.senders[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.senders[key] = &window{start: now, count: 1}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.senders {
		if now.Sub(w.start) >= time.Minute {
			delete(l.senders, key)
		}
	}
}

// ActiveSenders returns the number of senders currently tracked.
func (l *Limiter) ActiveSenders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.senders)
}

// Stop halts the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
}
