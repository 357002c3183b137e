package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEstimator_Increment(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   float64
	}{
		{"defaults", DefaultConfig(), 100.0 / 600.0},
		{"ten ticks", Config{Interval: time.Second, EstimatedDuration: 10 * time.Second, Cap: 95}, 10},
		{"zero interval falls back", Config{EstimatedDuration: 300 * time.Second, Cap: 95}, 100.0 / 600.0},
		{"estimate below interval falls back", Config{Interval: 500 * time.Millisecond, EstimatedDuration: time.Millisecond, Cap: 95}, 100.0 / 600.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(tt.config, nil)
			assert.InDelta(t, tt.want, e.Increment(), 1e-9)
		})
	}
}

func TestEstimator_RampsToCap(t *testing.T) {
	var (
		mu     sync.Mutex
		values []float64
	)
	e := NewEstimator(Config{Interval: time.Millisecond, EstimatedDuration: 10 * time.Millisecond, Cap: 95}, func(v float64) {
		mu.Lock()
		values = append(values, v)
		mu.Unlock()
	})

	e.Start(context.Background())
	require.Eventually(t, func() bool { return e.Percent() == 95 }, time.Second, time.Millisecond)

	// stays capped
	time.Sleep(10 * time.Millisecond)
	e.Stop()
	assert.Equal(t, 95.0, e.Percent())
	assert.False(t, e.IsRunning())

	mu.Lock()
	defer mu.Unlock()
	prev := 0.0
	for _, v := range values {
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, 95.0)
		prev = v
	}
}

func TestEstimator_StopIsIdempotentAndFinal(t *testing.T) {
	ticks := make(chan float64, 1000)
	e := NewEstimator(Config{Interval: time.Millisecond, EstimatedDuration: time.Second, Cap: 95}, func(v float64) {
		ticks <- v
	})

	e.Stop() // not started

	e.Start(context.Background())
	e.Start(context.Background())
	assert.True(t, e.IsRunning())

	<-ticks
	e.Stop()
	e.Stop()

	frozen := e.Percent()
	drained := len(ticks)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, frozen, e.Percent(), "no ticks after Stop")
	assert.Equal(t, drained, len(ticks))
}

func TestEstimator_ContextCancelEndsTicking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewEstimator(Config{Interval: time.Millisecond, EstimatedDuration: time.Second, Cap: 95}, nil)

	e.Start(ctx)
	require.Eventually(t, func() bool { return e.Percent() > 0 }, time.Second, time.Millisecond)
	cancel()

	// Stop still returns promptly and releases the goroutine
	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked after context cancellation")
	}
}

func TestEstimator_Reset(t *testing.T) {
	e := NewEstimator(Config{Interval: time.Millisecond, EstimatedDuration: 10 * time.Millisecond, Cap: 50}, nil)
	e.Start(context.Background())
	require.Eventually(t, func() bool { return e.Percent() == 50 }, time.Second, time.Millisecond)
	e.Stop()

	e.Reset()
	assert.Zero(t, e.Percent())
}
