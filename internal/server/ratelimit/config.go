// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"strings"
	"time"
)

// Tier is a named limiter. Keys are built from the client IP.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// TierConfig is the rate of one tier, in requests per minute.
type TierConfig struct {
	PerMinute int
	Burst     int
}

// Limiters holds the read and write tiers.
type Limiters struct {
	Read  Tier
	Write Tier
}

// New creates the limiters. A tier with PerMinute <= 0 is unlimited.
func New(read, write TierConfig) *Limiters {
	return &Limiters{
		Read:  Tier{Name: "read", Limiter: NewLimiter(read.PerMinute, time.Minute, read.Burst)},
		Write: Tier{Name: "write", Limiter: NewLimiter(write.PerMinute, time.Minute, write.Burst)},
	}
}

// Match returns the tier applying to a request, or nil when the request is
// not limited. Only /api/ routes are limited and health checks are exempt.
func (l *Limiters) Match(method, path string) *Tier {
	if l == nil || !strings.HasPrefix(path, "/api/") || path == "/api/health" {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return &l.Write
	case http.MethodGet, http.MethodHead:
		return &l.Read
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (l *Limiters) Close() {
	if l == nil {
		return
	}
	l.Read.Limiter.Close()
	l.Write.Limiter.Close()
}

// Key builds the bucket key for a tier and client.
func (t *Tier) Key(clientIP string) string {
	return "ip:" + clientIP + ":" + t.Name
}
