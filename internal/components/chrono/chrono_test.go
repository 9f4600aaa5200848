package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	clock := NewFake(start)

	require.NoError(t, clock.Sleep(context.Background(), 3*time.Second))
	require.Equal(t, start.Add(3*time.Second), clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
	require.Equal(t, start.Add(3*time.Second), clock.Now())
}

func TestStandardSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := StandardImpl{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, time.UTC, StandardImpl{}.Now().Location())
}
