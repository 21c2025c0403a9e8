package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds rate limiting configuration
type Config struct {
	// Global rate limiting
	GlobalEnabled    bool
	GlobalCapacity   int     // Max burst
	GlobalRefillRate float64 // Requests per second

	// Per-IP rate limiting
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	// Endpoint-specific rate limiting, keyed "METHOD /path"
	EndpointLimits map[string]EndpointLimit

	// Bucket TTL (how long to keep inactive buckets in memory)
	BucketTTL time.Duration

	// Headers to include in response
	IncludeHeaders bool
}

// EndpointLimit defines rate limits for a specific endpoint
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// DefaultConfig returns a sensible default configuration.
// Note: EndpointLimits should be configured by the caller based on their
// specific route configuration and prefix settings. No default endpoint
// limits are provided to avoid hardcoded URIs.
func DefaultConfig() *Config {
	return &Config{
		// Global: 1000 requests per minute
		GlobalEnabled:    true,
		GlobalCapacity:   1000,
		GlobalRefillRate: 1000.0 / 60.0,

		// Per-IP: 100 requests per minute
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 100.0 / 60.0,

		// Keep buckets for 1 hour after last use
		BucketTTL: 1 * time.Hour,

		IncludeHeaders: true,

		EndpointLimits: make(map[string]EndpointLimit),
	}
}

// Middleware holds the rate limiting middleware state
type Middleware struct {
	config           *Config
	globalLimiter    *RateLimiter
	ipLimiter        *RateLimiter
	endpointLimiters map[string]*RateLimiter
}

// NewMiddleware creates a new rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:           config,
		endpointLimiters: make(map[string]*RateLimiter),
	}

	if config.GlobalEnabled {
		m.globalLimiter = NewRateLimiter(
			config.GlobalCapacity,
			config.GlobalRefillRate,
			config.BucketTTL,
		)
	}

	if config.PerIPEnabled {
		m.ipLimiter = NewRateLimiter(
			config.PerIPCapacity,
			config.PerIPRefillRate,
			config.BucketTTL,
		)
	}

	for endpoint, limit := range config.EndpointLimits {
		m.endpointLimiters[endpoint] = NewRateLimiter(
			limit.Capacity,
			limit.RefillRate,
			config.BucketTTL,
		)
	}

	return m
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.GlobalEnabled && !m.globalLimiter.Allow("global") {
			m.rateLimitExceeded(w, r, "global")
			return
		}

		ip := getClientIP(r)
		if m.config.PerIPEnabled && ip != "" && !m.ipLimiter.Allow(ip) {
			m.rateLimitExceeded(w, r, "ip")
			return
		}

		endpointKey := r.Method + " " + r.URL.Path
		if limiter, exists := m.endpointLimiters[endpointKey]; exists {
			if !limiter.Allow(ip + ":" + endpointKey) {
				m.rateLimitExceeded(w, r, "endpoint")
				return
			}
		}

		if m.config.IncludeHeaders {
			m.addRateLimitHeaders(w, ip)
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitExceeded handles rate limit exceeded responses
func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", getClientIP(r),
		"path", r.URL.Path,
		"method", r.Method,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)

	w.Write([]byte(fmt.Sprintf(`{
		"error": "rate_limit_exceeded",
		"message": "Too many requests. Please try again later.",
		"type": "%s"
	}`, limitType)))
}

// addRateLimitHeaders adds rate limit information headers
func (m *Middleware) addRateLimitHeaders(w http.ResponseWriter, ip string) {
	if m.config.PerIPEnabled && ip != "" {
		w.Header().Set("X-RateLimit-Limit-IP", fmt.Sprintf("%d", m.config.PerIPCapacity))
	}
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is in format "IP:port", we only want the IP
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}

// GetStats returns statistics about all rate limiters
func (m *Middleware) GetStats() map[string]Stats {
	stats := make(map[string]Stats)

	if m.globalLimiter != nil {
		stats["global"] = m.globalLimiter.GetStats()
	}

	if m.ipLimiter != nil {
		stats["ip"] = m.ipLimiter.GetStats()
	}

	for endpoint, limiter := range m.endpointLimiters {
		stats["endpoint:"+endpoint] = limiter.GetStats()
	}

	return stats
}

// Reset resets rate limits for a specific IP
func (m *Middleware) Reset(key string) {
	if m.ipLimiter != nil {
		m.ipLimiter.Reset(key)
	}
}
