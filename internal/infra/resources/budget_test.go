package resources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBudget(t *testing.T) {
	// Budgets derive from live system memory, so assertions check the
	// preset invariants rather than exact figures.
	t.Run("performance", func(t *testing.T) {
		b := NewBudget(ProfilePerformance)
		assert.GreaterOrEqual(t, b.MaxMemoryMB, int64(1024))
		assert.Zero(t, b.CPUPercent)
		assert.Zero(t, b.BlockDelay)
		assert.GreaterOrEqual(t, b.BufferDepth, 5)
		assert.LessOrEqual(t, b.BufferDepth, 50)
		assert.False(t, b.Unbounded())
	})

	t.Run("balanced", func(t *testing.T) {
		b := NewBudget(ProfileBalanced)
		assert.GreaterOrEqual(t, b.MaxMemoryMB, int64(512))
		assert.Equal(t, 80, b.CPUPercent)
		assert.Zero(t, b.BlockDelay)
		assert.GreaterOrEqual(t, b.BufferDepth, 3)
		assert.LessOrEqual(t, b.BufferDepth, 30)
	})

	t.Run("low", func(t *testing.T) {
		b := NewBudget(ProfileLow)
		assert.GreaterOrEqual(t, b.MaxMemoryMB, int64(256))
		assert.Equal(t, 50, b.CPUPercent)
		assert.Equal(t, 5*time.Millisecond, b.BlockDelay)
		assert.GreaterOrEqual(t, b.BufferDepth, 2)
		assert.LessOrEqual(t, b.BufferDepth, 15)
	})

	t.Run("low_stays_under_performance", func(t *testing.T) {
		low := NewBudget(ProfileLow)
		perf := NewBudget(ProfilePerformance)
		assert.LessOrEqual(t, low.MaxMemoryMB, perf.MaxMemoryMB)
	})

	t.Run("unknown_profile_defaults_to_balanced", func(t *testing.T) {
		assert.Equal(t, NewBudget(ProfileBalanced), NewBudget(Profile("bogus")))
	})
}

func TestBudgetUnbounded(t *testing.T) {
	assert.True(t, Budget{}.Unbounded())
	assert.True(t, Budget{MaxMemoryMB: -1}.Unbounded())
	assert.False(t, Budget{MaxMemoryMB: 512}.Unbounded())
}

func TestMonitor(t *testing.T) {
	t.Run("unbounded_always_within", func(t *testing.T) {
		m := NewMonitor(Budget{})
		assert.True(t, m.WithinBudget())
	})

	t.Run("generous_ceiling_within", func(t *testing.T) {
		m := NewMonitor(Budget{MaxMemoryMB: 1 << 20})
		assert.True(t, m.WithinBudget())
	})

	t.Run("tiny_ceiling_exceeded", func(t *testing.T) {
		// The test process certainly uses more than one megabyte.
		m := NewMonitor(Budget{MaxMemoryMB: 1})
		if m.MemoryUsageMB() == 0 {
			t.Skip("process memory not measurable on this platform")
		}
		assert.False(t, m.WithinBudget())
	})

	t.Run("usage_is_positive_when_measurable", func(t *testing.T) {
		m := NewMonitor(Budget{MaxMemoryMB: 512})
		if usage := m.MemoryUsageMB(); usage != 0 {
			assert.Greater(t, usage, 1.0)
		}
	})
}

func TestThrottle(t *testing.T) {
	t.Run("zero_delay_is_noop", func(t *testing.T) {
		th := NewThrottle(0)
		require.NoError(t, th.Wait(context.Background()))
		require.NoError(t, th.Wait(context.Background()))
	})

	t.Run("paces_successive_waits", func(t *testing.T) {
		th := NewThrottle(10 * time.Millisecond)

		require.NoError(t, th.Wait(context.Background()))
		start := time.Now()
		require.NoError(t, th.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("canceled_context", func(t *testing.T) {
		th := NewThrottle(time.Hour)
		require.NoError(t, th.Wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, th.Wait(ctx))
	})
}
