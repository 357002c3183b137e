package progress

import (
	"context"
	"sync"
	"time"

	"docflow/pkg/logger"
)

const (
	DefaultInterval          = 500 * time.Millisecond
	DefaultEstimatedDuration = 300 * time.Second
	DefaultCap               = 95.0
)

// Config tunes the linear ramp.
type Config struct {
	Interval          time.Duration
	EstimatedDuration time.Duration
	Cap               float64
}

// DefaultConfig returns a default estimator configuration
func DefaultConfig() Config {
	return Config{
		Interval:          DefaultInterval,
		EstimatedDuration: DefaultEstimatedDuration,
		Cap:               DefaultCap,
	}
}

// Estimator produces a synthetic percentage for a job whose real progress is not
// observable. It ramps linearly toward Cap and never reaches 100 by itself.
type Estimator struct {
	mu        sync.RWMutex
	config    Config
	increment float64
	percent   float64
	onTick    func(float64)

	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	logger *logger.Logger
}

// NewEstimator creates an estimator; onTick, if set, is called after every tick
// with the new value, from the ticker goroutine.
func NewEstimator(config Config, onTick func(float64)) *Estimator {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.EstimatedDuration < config.Interval {
		config.EstimatedDuration = def.EstimatedDuration
	}
	if config.Cap <= 0 || config.Cap >= 100 {
		config.Cap = def.Cap
	}

	ticks := float64(config.EstimatedDuration) / float64(config.Interval)

	return &Estimator{
		config:    config,
		increment: 100 / ticks,
		onTick:    onTick,
		logger:    logger.WithField("component", "progress-estimator"),
	}
}

// Increment returns the per-tick step.
func (e *Estimator) Increment() float64 {
	return e.increment
}

// Start begins ticking. Calling Start on a running estimator is a no-op.
func (e *Estimator) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}

	tickCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true

	e.wg.Add(1)
	go e.run(tickCtx)

	e.logger.Debug("estimator started", "interval", e.config.Interval, "increment", e.increment)
}

// Stop releases the ticker and waits for its goroutine to exit. The current
// value is kept. Safe to call any number of times.
func (e *Estimator) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.cancel()
	e.running = false
	// Release the lock before waiting, the tick path takes it
	e.mu.Unlock()

	e.wg.Wait()

	e.logger.Debug("estimator stopped", "percent", e.Percent())
}

// Reset sets the value back to 0.
func (e *Estimator) Reset() {
	e.mu.Lock()
	e.percent = 0
	e.mu.Unlock()
}

// Percent returns the current estimate.
func (e *Estimator) Percent() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.percent
}

// IsRunning returns true while the ticker goroutine is alive
func (e *Estimator) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Estimator) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			value, ok := e.advance(ctx)
			if !ok {
				return
			}
			if e.onTick != nil {
				e.onTick(value)
			}
		case <-ctx.Done():
			return
		}
	}
}

// advance applies one tick unless the estimator was stopped in the meantime.
func (e *Estimator) advance(ctx context.Context) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Err() != nil {
		return e.percent, false
	}

	next := e.percent + e.increment
	if next > e.config.Cap {
		next = e.config.Cap
	}
	e.percent = next
	return next, true
}
