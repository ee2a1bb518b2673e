package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/steamtunnels/internal/config"
)

// ConnLimiter caps concurrent inspector sessions per client IP and overall.
// A zero limit disables that cap.
type ConnLimiter struct {
	limits config.ConnectionsConfig

	mu    sync.Mutex
	perIP map[string]int
	total int
}

// ConnStats is reported by /healthz.
type ConnStats struct {
	Total     int `json:"total"`
	UniqueIPs int `json:"unique_ips"`
}

func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{limits: cfg, perIP: make(map[string]int)}
}

// TryAcquire takes a slot for ip. Every successful call must be paired with
// Release.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if over(c.total, c.limits.MaxTotal) || over(c.perIP[ip], c.limits.MaxPerIP) {
		return false
	}
	c.perIP[ip]++
	c.total++
	return true
}

func over(n, limit int) bool {
	return limit > 0 && n >= limit
}

// Release returns a slot taken by TryAcquire. Releasing an IP with no slots
// is a no-op.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(c.perIP, ip)
	} else {
		c.perIP[ip] = n - 1
	}
	c.total--
}

func (c *ConnLimiter) Stats() ConnStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnStats{Total: c.total, UniqueIPs: len(c.perIP)}
}

// clientIP picks the address a request is counted against. Forwarding
// headers are read only when trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
