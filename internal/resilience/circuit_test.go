package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-adorn/internal/resilience"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond).WithTarget("razorpay")

	// two straight failures cross the 50% ratio over a sample of two
	for i := 0; i < 2; i++ {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, false)
	}
	require.False(t, breaker.Allow(ctx), "calls must be refused while open")

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "cool-off elapsed, probe admitted")
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "successful probe closes the breaker")
}

func TestBreakerStaysClosedUnderMixedTraffic(t *testing.T) {
	ctx := context.Background()
	breaker := resilience.NewBreaker(4, 0.75, time.Second)

	outcomes := []bool{true, false, true, true, false, true}
	for _, ok := range outcomes {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, ok)
	}
	require.True(t, breaker.Allow(ctx), "failure ratio below threshold must not trip")
}

func TestBackoffGrowth(t *testing.T) {
	base := 100 * time.Millisecond

	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, 2*base, resilience.Backoff(base, 2, 0))
	require.Equal(t, 4*base, resilience.Backoff(base, 3, 0))

	// jittered delay stays within ±20% of the nominal value
	jittered := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, jittered, 2*base-2*base/5)
	require.LessOrEqual(t, jittered, 2*base+2*base/5)
}
