package redis

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
)

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx).Err())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestMetricsHook_RecordsCommands(t *testing.T) {
	m := metrics.NewRedisMetrics(metrics.NewRegistry())
	client := setupTestClient(t, NewMetricsHook(m))
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	_, err := client.Get(ctx, "missing").Result()
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("set", "success")))
	// redis.Nil is a normal miss, not an error.
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("get", "success")))
}

func TestCircuitBreakerHook_PassesThroughWhenHealthy(t *testing.T) {
	m := metrics.NewRedisMetrics(metrics.NewRegistry())
	client := setupTestClient(t, NewCircuitBreakerHook(m))
	ctx := context.Background()

	for range 10 {
		require.NoError(t, client.Incr(ctx, "counter").Err())
	}
	n, err := client.Get(ctx, "counter").Int()
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState))
}
