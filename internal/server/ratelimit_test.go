package server

import (
	"testing"
	"time"

	"github.com/lawnchairsociety/steamtunnels/internal/config"
)

func TestCommandRateLimiter_Basic(t *testing.T) {
	rl := NewCommandRateLimiter(config.RateLimitConfig{
		MaxCommands:       3,
		WindowSeconds:     60,
		LockoutSeconds:    1,
		MaxLockoutSeconds: 10,
	})
	defer rl.Stop()

	ip := "192.168.1.1"

	// First 3 commands fit in the window
	for i := 1; i <= 3; i++ {
		if ok, _ := rl.Allow(ip); !ok {
			t.Fatalf("command %d should be allowed", i)
		}
	}
	if count := rl.Count(ip); count != 3 {
		t.Errorf("expected 3 commands counted, got %d", count)
	}

	// Fourth command triggers lockout
	ok, duration := rl.Allow(ip)
	if ok {
		t.Error("fourth command should trigger lockout")
	}
	if duration < 1*time.Second {
		t.Errorf("lockout duration should be at least 1 second, got %v", duration)
	}

	if locked, _ := rl.IsLocked(ip); !locked {
		t.Error("IP should be locked")
	}

	// Commands while locked are refused without extending the lockout
	ok, remaining := rl.Allow(ip)
	if ok {
		t.Error("command while locked should be refused")
	}
	if remaining > duration {
		t.Errorf("remaining lockout %v should not exceed %v", remaining, duration)
	}
}

func TestCommandRateLimiter_WindowResets(t *testing.T) {
	rl := NewCommandRateLimiter(config.RateLimitConfig{
		MaxCommands:   2,
		WindowSeconds: 1,
	})
	defer rl.Stop()

	ip := "192.168.1.1"
	rl.Allow(ip)
	rl.Allow(ip)

	time.Sleep(1100 * time.Millisecond)

	// A new window starts counting from zero
	if ok, _ := rl.Allow(ip); !ok {
		t.Error("command in a fresh window should be allowed")
	}
	if count := rl.Count(ip); count != 1 {
		t.Errorf("expected 1 command in the new window, got %d", count)
	}
}

func TestCommandRateLimiter_ExponentialBackoff(t *testing.T) {
	rl := NewCommandRateLimiter(config.RateLimitConfig{
		MaxCommands:       1, // Lock on the second command for faster testing
		WindowSeconds:     60,
		LockoutSeconds:    1,
		MaxLockoutSeconds: 10,
	})
	defer rl.Stop()

	ip := "192.168.1.1"

	rl.Allow(ip)
	// First lockout should be ~1 second
	_, duration1 := rl.Allow(ip)
	if duration1 < 1*time.Second || duration1 > 2*time.Second {
		t.Errorf("first lockout should be ~1 second, got %v", duration1)
	}

	time.Sleep(duration1 + 100*time.Millisecond)

	// Second lockout should be ~2 seconds (doubled)
	rl.Allow(ip)
	_, duration2 := rl.Allow(ip)
	if duration2 < 2*time.Second || duration2 > 3*time.Second {
		t.Errorf("second lockout should be ~2 seconds, got %v", duration2)
	}
}

func TestCommandRateLimiter_MaxLockout(t *testing.T) {
	rl := NewCommandRateLimiter(config.RateLimitConfig{
		MaxCommands:       1,
		WindowSeconds:     60,
		LockoutSeconds:    1,
		MaxLockoutSeconds: 1, // Cap at the initial lockout
	})
	defer rl.Stop()

	ip := "192.168.1.1"

	rl.Allow(ip)
	rl.Allow(ip)
	time.Sleep(1100 * time.Millisecond)

	// Would be 2 seconds (doubled), but capped at 1
	rl.Allow(ip)
	_, duration := rl.Allow(ip)
	if duration > 1100*time.Millisecond {
		t.Errorf("lockout should be capped at 1 second, got %v", duration)
	}
}

func TestCommandRateLimiter_MultipleIPs(t *testing.T) {
	rl := NewCommandRateLimiter(config.RateLimitConfig{
		MaxCommands:       1,
		WindowSeconds:     60,
		LockoutSeconds:    30,
		MaxLockoutSeconds: 300,
	})
	defer rl.Stop()

	ip1 := "192.168.1.1"
	ip2 := "192.168.1.2"

	// Lock out IP1
	rl.Allow(ip1)
	rl.Allow(ip1)

	if locked, _ := rl.IsLocked(ip1); !locked {
		t.Error("IP1 should be locked")
	}

	// IP2 should not be affected
	if locked, _ := rl.IsLocked(ip2); locked {
		t.Error("IP2 should not be locked")
	}
	if ok, _ := rl.Allow(ip2); !ok {
		t.Error("first command for IP2 should be allowed")
	}
}

func TestCommandRateLimiter_Defaults(t *testing.T) {
	rl := NewCommandRateLimiter(config.RateLimitConfig{})
	defer rl.Stop()

	for i := 0; i < 20; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("command %d should be allowed under the default limit", i+1)
		}
	}
	if ok, _ := rl.Allow("10.0.0.1"); ok {
		t.Error("command 21 should exceed the default limit")
	}

	// Stop twice must not panic
	rl.Stop()
}
