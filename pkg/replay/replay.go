package replay

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tendant/simple-registration/pkg/cachestore"
)

// Default lifetimes, matching the flows this layer serves.
const (
	DefaultPendingTTL = 15 * time.Minute
	DefaultFailureTTL = 5 * time.Minute
	DefaultCooldown   = 5 * time.Minute
)

// Result is the outcome of a replay-cache lookup for a code.
type Result struct {
	// Terminal is the cached terminal HTTP status (404, 409 or 410), or 0
	// when the entry is not a terminal marker.
	Terminal int
	// Subject is the cached fast-path value for a live code, or "" when
	// the code is absent from the cache.
	Subject string
}

// Absent reports whether the code has no cache entry at all, meaning the
// caller must fall back to decoding the code.
func (r Result) Absent() bool {
	return r.Terminal == 0 && r.Subject == ""
}

// Cache wraps a flow-scoped store with code replay and send-throttle
// semantics.
type Cache struct {
	store      *cachestore.Store
	pendingTTL time.Duration
	failureTTL time.Duration
	cooldown   time.Duration
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithPendingTTL sets the lifetime of fast-path subject entries.
func WithPendingTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.pendingTTL = ttl
	}
}

// WithFailureTTL sets the lifetime of terminal markers recorded for decode
// and precondition failures.
func WithFailureTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.failureTTL = ttl
	}
}

// WithCooldown sets the send-throttle window.
func WithCooldown(cooldown time.Duration) Option {
	return func(c *Cache) {
		c.cooldown = cooldown
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a replay cache over the given flow-scoped store.
func New(store *cachestore.Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		pendingTTL: DefaultPendingTTL,
		failureTTL: DefaultFailureTTL,
		cooldown:   DefaultCooldown,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FailureTTL returns the lifetime applied to failure markers.
func (c *Cache) FailureTTL() time.Duration {
	return c.failureTTL
}

// Cooldown returns the send-throttle window.
func (c *Cache) Cooldown() time.Duration {
	return c.cooldown
}

// CheckCode looks a code up. A numeric cached value is a terminal outcome
// marker; any other value is a previously resolved fast-path subject.
func (c *Cache) CheckCode(ctx context.Context, code string) (Result, error) {
	value, found, err := c.store.Get(ctx, code)
	if err != nil {
		return Result{}, fmt.Errorf("check code: %w", err)
	}
	if !found {
		return Result{}, nil
	}
	if status, err := strconv.Atoi(value); err == nil {
		return Result{Terminal: status}, nil
	}
	return Result{Subject: value}, nil
}

// RecordTerminal stores a terminal outcome marker for a code. The caller
// derives ttl from the code's remaining lifetime; it must never outlive the
// code's true expiry.
func (c *Cache) RecordTerminal(ctx context.Context, code string, status int, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.failureTTL
	}
	return c.store.Set(ctx, code, strconv.Itoa(status), ttl)
}

// RecordFailure stores a short-lived terminal marker for a code that failed
// decoding or a flow precondition.
func (c *Cache) RecordFailure(ctx context.Context, code string, status int) error {
	return c.store.Set(ctx, code, strconv.Itoa(status), c.failureTTL)
}

// RecordPendingSubject stores the code-to-subject fast path set when a code
// is issued, so near-simultaneous submissions skip re-verification.
func (c *Cache) RecordPendingSubject(ctx context.Context, code, subject string) error {
	return c.store.Set(ctx, code, subject, c.pendingTTL)
}

// ConsumedTTL computes how long a consumed-code marker may live when the
// decoded expiry is unavailable (fast-path hit). It subtracts the time the
// fast-path entry has already been alive from the code's full lifetime, so
// the result never overstates the code's remaining validity.
func (c *Cache) ConsumedTTL(ctx context.Context, code string, codeTTL time.Duration) time.Duration {
	remaining, found, err := c.store.RemainingTTL(ctx, code)
	if err != nil || !found {
		return codeTTL
	}
	alive := c.pendingTTL - remaining
	if alive < 0 {
		alive = 0
	}
	ttl := codeTTL - alive
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}

// CheckThrottle reports whether a send to identity is still inside the
// cooldown window.
func (c *Cache) CheckThrottle(ctx context.Context, identity string) (bool, error) {
	_, found, err := c.store.Get(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("check throttle: %w", err)
	}
	return found, nil
}

// RecordThrottle marks identity as recently sent to. Call only after a
// successful send so failed sends stay retryable.
func (c *Cache) RecordThrottle(ctx context.Context, identity string) error {
	return c.store.Set(ctx, identity, c.now().UTC().Format(time.RFC3339), c.cooldown)
}

// ClearThrottle releases the cooldown for identity, used once a code is
// terminally consumed.
func (c *Cache) ClearThrottle(ctx context.Context, identity string) error {
	_, err := c.store.Delete(ctx, identity)
	return err
}
