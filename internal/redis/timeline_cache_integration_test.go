package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/postpulse/postpulse/internal/domain"
)

var testClient *goredis.Client

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start redis container: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to terminate redis container: %v\n", err)
		}
	}()

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testClient, err = NewClient(ctx, connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to test redis: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = testClient.Close() }()

	os.Exit(m.Run())
}

func setupCache(t *testing.T, ttl time.Duration) *TimelineCache {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	t.Cleanup(func() {
		if err := testClient.FlushAll(context.Background()).Err(); err != nil {
			t.Logf("Failed to flush redis: %v", err)
		}
	})

	return NewTimelineCache(testClient, ttl)
}

func sampleBuckets() []domain.TimeBucket {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return []domain.TimeBucket{
		{
			PeriodStart:   start,
			PeriodEnd:     start.AddDate(0, 0, 7),
			TotalCount:    10,
			PositiveRatio: 0.6,
			NeutralRatio:  0.2,
			NegativeRatio: 0.2,
		},
	}
}

func TestTimelineCache_SetAndGet(t *testing.T) {
	cache := setupCache(t, time.Minute)
	ctx := context.Background()
	snapshot := uuid.New()

	require.NoError(t, cache.Set(ctx, "acme", domain.PeriodWeek, snapshot, sampleBuckets()))

	got, ok, err := cache.Get(ctx, "acme", domain.PeriodWeek, snapshot)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].TotalCount)
	assert.InDelta(t, 0.6, got[0].PositiveRatio, 1e-9)
	assert.True(t, got[0].PeriodStart.Equal(sampleBuckets()[0].PeriodStart))
}

func TestTimelineCache_MissIsNotAnError(t *testing.T) {
	cache := setupCache(t, time.Minute)

	got, ok, err := cache.Get(context.Background(), "acme", domain.PeriodDay, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestTimelineCache_SnapshotVersionIsolation(t *testing.T) {
	cache := setupCache(t, time.Minute)
	ctx := context.Background()
	oldSnapshot := uuid.New()
	newSnapshot := uuid.New()

	require.NoError(t, cache.Set(ctx, "acme", domain.PeriodWeek, oldSnapshot, sampleBuckets()))

	// a new run means a new snapshot; its key starts cold
	_, ok, err := cache.Get(ctx, "acme", domain.PeriodWeek, newSnapshot)
	require.NoError(t, err)
	assert.False(t, ok)

	// periods are isolated too
	_, ok, err = cache.Get(ctx, "acme", domain.PeriodDay, oldSnapshot)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTimelineCache_EntriesExpire(t *testing.T) {
	cache := setupCache(t, time.Second)
	ctx := context.Background()
	snapshot := uuid.New()

	require.NoError(t, cache.Set(ctx, "acme", domain.PeriodMonth, snapshot, sampleBuckets()))

	require.Eventually(t, func() bool {
		_, ok, err := cache.Get(ctx, "acme", domain.PeriodMonth, snapshot)
		return err == nil && !ok
	}, 5*time.Second, 200*time.Millisecond)
}

func TestTimelineCache_EmptySeriesRoundTrips(t *testing.T) {
	cache := setupCache(t, time.Minute)
	ctx := context.Background()
	snapshot := uuid.New()

	require.NoError(t, cache.Set(ctx, "quiet", domain.PeriodDay, snapshot, []domain.TimeBucket{}))

	got, ok, err := cache.Get(ctx, "quiet", domain.PeriodDay, snapshot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}
