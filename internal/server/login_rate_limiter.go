package server

import (
	"sync"
	"time"
)

const limiterSweepEvery = 64

// loginRateLimiter blocks a key (client ip + username) for a cool-down after
// too many failed logins inside a sliding window. A nil limiter allows
// everything.
type loginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*loginAttempts
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	forgetAfter time.Duration
	ops         int
}

type loginAttempts struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	forgetAfter := 2 * max(window, blockFor)
	if forgetAfter < 10*time.Minute {
		forgetAfter = 10 * time.Minute
	}
	return &loginRateLimiter{
		attempts:    make(map[string]*loginAttempts),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
		forgetAfter: forgetAfter,
	}
}

// Allow reports whether a login attempt for key may proceed.
func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.sweepLocked(now)

	a := l.entryLocked(key, now)
	if now.Before(a.blockedUntil) {
		return false
	}
	a.blockedUntil = time.Time{}
	if !a.windowStart.IsZero() && now.Sub(a.windowStart) > l.window {
		a.failures = 0
		a.windowStart = time.Time{}
	}
	return true
}

func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.sweepLocked(now)

	a := l.entryLocked(key, now)
	if a.windowStart.IsZero() || now.Sub(a.windowStart) > l.window {
		a.failures = 0
		a.windowStart = now
	}
	a.failures++
	if a.failures >= l.maxFailures {
		a.blockedUntil = now.Add(l.blockFor)
		a.failures = 0
		a.windowStart = time.Time{}
	}
}

// Reset forgets key after a successful login.
func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *loginRateLimiter) entryLocked(key string, now time.Time) *loginAttempts {
	a, ok := l.attempts[key]
	if !ok {
		a = &loginAttempts{}
		l.attempts[key] = a
	}
	a.lastSeen = now
	return a
}

func (l *loginRateLimiter) sweepLocked(now time.Time) {
	l.ops++
	if l.ops%limiterSweepEvery != 0 {
		return
	}
	for key, a := range l.attempts {
		if now.Sub(a.lastSeen) > l.forgetAfter {
			delete(l.attempts, key)
		}
	}
}
