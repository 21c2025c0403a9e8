package config

import (
	"time"

	"github.com/tendant/simple-registration/pkg/ratelimit"
)

// RateLimitConfig contains rate limiting settings.
// Fields have no env tags - populate manually or use NewRateLimitConfigFromEnv() for standard env var names.
type RateLimitConfig struct {
	// Global rate limiting
	GlobalEnabled    bool
	GlobalCapacity   int
	GlobalRefillRate float64 // tokens per second

	// Per-IP rate limiting
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64 // tokens per second

	// Signup endpoint specific limits
	SignupEnabled    bool
	SignupCapacity   int
	SignupRefillRate float64 // tokens per second

	// Email-sending endpoint specific limits (resend, password reset,
	// email change confirmations)
	SendEnabled    bool
	SendCapacity   int
	SendRefillRate float64 // tokens per second

	// IncludeHeaders controls whether rate limit headers are included in responses
	IncludeHeaders bool
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		// Global: ~1000 requests per minute
		GlobalEnabled:    true,
		GlobalCapacity:   1000,
		GlobalRefillRate: 16.67,

		// Per-IP: ~100 requests per minute
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 1.67,

		// Signup: 5 per 5 minutes
		SignupEnabled:    true,
		SignupCapacity:   5,
		SignupRefillRate: 0.017,

		// Sends: 3 per hour per IP and endpoint
		SendEnabled:    true,
		SendCapacity:   3,
		SendRefillRate: 0.00083,

		IncludeHeaders: true,
	}
}

// NewRateLimitConfigFromEnv loads RateLimitConfig from standard environment variables.
// This is an optional convenience function - you can also populate the struct manually.
//
// Environment variables:
//   - RATELIMIT_GLOBAL_ENABLED: Enable global rate limiting (default: true)
//   - RATELIMIT_GLOBAL_CAPACITY: Global bucket capacity (default: 1000)
//   - RATELIMIT_GLOBAL_REFILL_RATE: Global refill rate in tokens/sec (default: 16.67)
//   - RATELIMIT_PER_IP_ENABLED: Enable per-IP rate limiting (default: true)
//   - RATELIMIT_PER_IP_CAPACITY: Per-IP bucket capacity (default: 100)
//   - RATELIMIT_PER_IP_REFILL_RATE: Per-IP refill rate in tokens/sec (default: 1.67)
//   - RATELIMIT_SIGNUP_ENABLED: Enable signup endpoint rate limiting (default: true)
//   - RATELIMIT_SIGNUP_CAPACITY: Signup bucket capacity (default: 5)
//   - RATELIMIT_SIGNUP_REFILL_RATE: Signup refill rate in tokens/sec (default: 0.017)
//   - RATELIMIT_SEND_ENABLED: Enable email-send endpoint rate limiting (default: true)
//   - RATELIMIT_SEND_CAPACITY: Send bucket capacity (default: 3)
//   - RATELIMIT_SEND_REFILL_RATE: Send refill rate in tokens/sec (default: 0.00083)
//   - RATELIMIT_INCLUDE_HEADERS: Include rate limit headers in responses (default: true)
func NewRateLimitConfigFromEnv() RateLimitConfig {
	return RateLimitConfig{
		GlobalEnabled:    GetEnvBool("RATELIMIT_GLOBAL_ENABLED", true),
		GlobalCapacity:   GetEnvInt("RATELIMIT_GLOBAL_CAPACITY", 1000),
		GlobalRefillRate: GetEnvFloat64("RATELIMIT_GLOBAL_REFILL_RATE", 16.67),
		PerIPEnabled:     GetEnvBool("RATELIMIT_PER_IP_ENABLED", true),
		PerIPCapacity:    GetEnvInt("RATELIMIT_PER_IP_CAPACITY", 100),
		PerIPRefillRate:  GetEnvFloat64("RATELIMIT_PER_IP_REFILL_RATE", 1.67),
		SignupEnabled:    GetEnvBool("RATELIMIT_SIGNUP_ENABLED", true),
		SignupCapacity:   GetEnvInt("RATELIMIT_SIGNUP_CAPACITY", 5),
		SignupRefillRate: GetEnvFloat64("RATELIMIT_SIGNUP_REFILL_RATE", 0.017),
		SendEnabled:      GetEnvBool("RATELIMIT_SEND_ENABLED", true),
		SendCapacity:     GetEnvInt("RATELIMIT_SEND_CAPACITY", 3),
		SendRefillRate:   GetEnvFloat64("RATELIMIT_SEND_REFILL_RATE", 0.00083),
		IncludeHeaders:   GetEnvBool("RATELIMIT_INCLUDE_HEADERS", true),
	}
}

// ToMiddlewareConfig builds the middleware configuration, keying the
// endpoint limits under the given mount prefix.
func (c RateLimitConfig) ToMiddlewareConfig(basePath string) *ratelimit.Config {
	cfg := &ratelimit.Config{
		GlobalEnabled:    c.GlobalEnabled,
		GlobalCapacity:   c.GlobalCapacity,
		GlobalRefillRate: c.GlobalRefillRate,
		PerIPEnabled:     c.PerIPEnabled,
		PerIPCapacity:    c.PerIPCapacity,
		PerIPRefillRate:  c.PerIPRefillRate,
		BucketTTL:        1 * time.Hour,
		IncludeHeaders:   c.IncludeHeaders,
		EndpointLimits:   make(map[string]ratelimit.EndpointLimit),
	}

	if c.SignupEnabled {
		cfg.EndpointLimits["POST "+basePath+"/sign-up"] = ratelimit.EndpointLimit{
			Capacity:   c.SignupCapacity,
			RefillRate: c.SignupRefillRate,
		}
	}

	if c.SendEnabled {
		for _, path := range []string{
			"/resend-confirmation-email",
			"/send-password-reset-email",
			"/send-update-email-confirmation",
		} {
			cfg.EndpointLimits["POST "+basePath+path] = ratelimit.EndpointLimit{
				Capacity:   c.SendCapacity,
				RefillRate: c.SendRefillRate,
			}
		}
	}

	return cfg
}
