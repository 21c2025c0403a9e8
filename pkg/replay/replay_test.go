package replay

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-registration/pkg/cachestore"
)

func newTestCache(t *testing.T, opts ...Option) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis run failed")
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(cachestore.New(rdb, "EMAIL_CONFIRMATION"), opts...), mr
}

func TestCheckCodeAbsent(t *testing.T) {
	cache, _ := newTestCache(t)

	result, err := cache.CheckCode(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.True(t, result.Absent())
}

func TestCheckCodeTerminalMarkers(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	for _, status := range []int{http.StatusNotFound, http.StatusConflict, http.StatusGone} {
		code := "code-" + http.StatusText(status)
		require.NoError(t, cache.RecordFailure(ctx, code, status))

		result, err := cache.CheckCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, status, result.Terminal)
		assert.False(t, result.Absent())
	}
}

func TestCheckCodePendingSubject(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.RecordPendingSubject(ctx, "code-1", "user-1"))

	result, err := cache.CheckCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.Subject)
	assert.Zero(t, result.Terminal)
}

func TestPendingSubjectExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.RecordPendingSubject(ctx, "code-1", "user-1"))
	mr.FastForward(DefaultPendingTTL + time.Second)

	result, err := cache.CheckCode(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, result.Absent())
}

func TestFailureMarkerUsesShortTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.RecordFailure(ctx, "code-1", http.StatusNotFound))
	mr.FastForward(DefaultFailureTTL + time.Second)

	result, err := cache.CheckCode(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, result.Absent())
}

func TestRecordTerminalHonorsGivenTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.RecordTerminal(ctx, "code-1", http.StatusGone, 30*time.Minute))

	mr.FastForward(29 * time.Minute)
	result, err := cache.CheckCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, result.Terminal)

	mr.FastForward(2 * time.Minute)
	result, err = cache.CheckCode(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, result.Absent())
}

func TestConsumedTTLNeverOverstatesRemainingLifetime(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	codeTTL := time.Hour

	require.NoError(t, cache.RecordPendingSubject(ctx, "code-1", "user-1"))

	// Five minutes into the fast-path entry's life the code has 55 minutes
	// left; the recomputed TTL must not exceed that.
	mr.FastForward(5 * time.Minute)
	ttl := cache.ConsumedTTL(ctx, "code-1", codeTTL)
	assert.LessOrEqual(t, ttl, 55*time.Minute)
	assert.Greater(t, ttl, 50*time.Minute)
}

func TestConsumedTTLWithoutFastPathEntry(t *testing.T) {
	cache, _ := newTestCache(t)

	ttl := cache.ConsumedTTL(context.Background(), "cold-code", time.Hour)
	assert.Equal(t, time.Hour, ttl)
}

func TestThrottleWindow(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	throttled, err := cache.CheckThrottle(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, throttled)

	require.NoError(t, cache.RecordThrottle(ctx, "a@x.com"))

	throttled, err = cache.CheckThrottle(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, throttled)

	mr.FastForward(DefaultCooldown + time.Second)

	throttled, err = cache.CheckThrottle(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, throttled, "cooldown must release after the window elapses")
}

func TestClearThrottle(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.RecordThrottle(ctx, "a@x.com"))
	require.NoError(t, cache.ClearThrottle(ctx, "a@x.com"))

	throttled, err := cache.CheckThrottle(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, throttled)
}
