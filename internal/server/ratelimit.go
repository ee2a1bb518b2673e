package server

import (
	"sync"
	"time"

	"github.com/lawnchairsociety/steamtunnels/internal/config"
)

// CommandRateLimiter counts inspector commands per IP in fixed windows and
// locks out clients that exceed the limit.
type CommandRateLimiter struct {
	mu                sync.Mutex
	clients           map[string]*commandWindow
	maxCommands       int
	window            time.Duration
	lockoutSeconds    int
	maxLockoutSeconds int
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

type commandWindow struct {
	started      time.Time
	count        int
	lockedUntil  time.Time
	lockoutCount int // Number of times locked out (for exponential backoff)
}

// NewCommandRateLimiter creates a new rate limiter with the given config.
func NewCommandRateLimiter(cfg config.RateLimitConfig) *CommandRateLimiter {
	rl := &CommandRateLimiter{
		clients:           make(map[string]*commandWindow),
		maxCommands:       cfg.MaxCommands,
		window:            time.Duration(cfg.WindowSeconds) * time.Second,
		lockoutSeconds:    cfg.LockoutSeconds,
		maxLockoutSeconds: cfg.MaxLockoutSeconds,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}

	// Use sensible defaults if not configured
	if rl.maxCommands == 0 {
		rl.maxCommands = 20
	}
	if rl.window == 0 {
		rl.window = 10 * time.Second
	}
	if rl.lockoutSeconds == 0 {
		rl.lockoutSeconds = 30
	}
	if rl.maxLockoutSeconds == 0 {
		rl.maxLockoutSeconds = 300
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *CommandRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// Allow records a command from ip. It returns false while the IP is locked
// out, along with the remaining lockout duration.
func (rl *CommandRateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	info, exists := rl.clients[ip]
	if !exists {
		info = &commandWindow{started: now}
		rl.clients[ip] = info
	}

	if now.Before(info.lockedUntil) {
		return false, info.lockedUntil.Sub(now)
	}

	if now.Sub(info.started) >= rl.window {
		info.started = now
		info.count = 0
	}

	info.count++
	if info.count <= rl.maxCommands {
		return true, 0
	}

	info.lockoutCount++
	// Exponential backoff: double the lockout each time, up to max
	lockout := time.Duration(rl.lockoutSeconds) * time.Second
	maxLockout := time.Duration(rl.maxLockoutSeconds) * time.Second
	for i := 1; i < info.lockoutCount; i++ {
		// Check before multiplication to prevent overflow
		if lockout >= maxLockout/2 {
			lockout = maxLockout
			break
		}
		lockout *= 2
	}
	if lockout > maxLockout {
		lockout = maxLockout
	}
	info.lockedUntil = now.Add(lockout)
	info.started = now
	info.count = 0
	return false, lockout
}

// IsLocked checks if the given IP is currently locked out.
func (rl *CommandRateLimiter) IsLocked(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, exists := rl.clients[ip]
	if !exists {
		return false, 0
	}
	if time.Now().Before(info.lockedUntil) {
		return true, time.Until(info.lockedUntil)
	}
	return false, 0
}

// Count returns the commands counted for ip in its current window.
func (rl *CommandRateLimiter) Count(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if info, exists := rl.clients[ip]; exists {
		return info.count
	}
	return 0
}

// cleanupLoop periodically removes expired entries.
func (rl *CommandRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops clients that are unlocked and have been quiet for 10 minutes.
func (rl *CommandRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, info := range rl.clients {
		if info.lockedUntil.Before(cutoff) && info.started.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}
