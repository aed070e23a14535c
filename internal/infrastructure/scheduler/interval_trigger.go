package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/mediator/backend/internal/domain/sync"
)

// CycleRunner runs one sync cycle. Busy runners reject with
// ErrSyncInProgress rather than queuing.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*domain.Run, error)
}

// IntervalTriggerConfig holds configuration for the interval trigger
type IntervalTriggerConfig struct {
	// DefaultInterval is used when the settings store is unreadable
	DefaultInterval time.Duration
}

// DefaultIntervalTriggerConfig returns default trigger configuration
func DefaultIntervalTriggerConfig() IntervalTriggerConfig {
	return IntervalTriggerConfig{
		DefaultInterval: 10 * time.Minute,
	}
}

// IntervalTrigger fires sync cycles on a recurring interval. The interval is
// re-read from the settings store before every wait, so operator changes take
// effect without a restart. A tick that lands while a cycle is still running
// is skipped, not queued; missed ticks collapse into the next single run.
type IntervalTrigger struct {
	config   IntervalTriggerConfig
	runner   CycleRunner
	settings domain.SettingsStore
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(
	config IntervalTriggerConfig,
	runner CycleRunner,
	settings domain.SettingsStore,
	logger *zap.Logger,
) *IntervalTrigger {
	if config.DefaultInterval <= 0 {
		config.DefaultInterval = 10 * time.Minute
	}
	return &IntervalTrigger{
		config:   config,
		runner:   runner,
		settings: settings,
		logger:   logger.Named("scheduler"),
	}
}

// Start starts the trigger loop
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.loop(ctx)

	t.logger.Info("sync scheduler started",
		zap.Duration("default_interval", t.config.DefaultInterval),
	)
	return nil
}

// Stop stops the trigger loop and waits for it to finish
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("sync scheduler stop timed out")
		return ctx.Err()
	}
}

func (t *IntervalTrigger) loop(ctx context.Context) {
	defer t.wg.Done()

	for {
		interval := t.currentInterval(ctx)
		next := time.Now().Add(interval)
		t.setNextRunAt(&next)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.setNextRunAt(nil)
			return
		case <-timer.C:
			t.fire(ctx)
		}
	}
}

// currentInterval reads the poll interval for the upcoming wait
func (t *IntervalTrigger) currentInterval(ctx context.Context) time.Duration {
	settings, err := t.settings.Get(ctx)
	if err != nil {
		t.logger.Warn("failed to read settings, using default interval",
			zap.Duration("default_interval", t.config.DefaultInterval),
			zap.Error(err),
		)
		return t.config.DefaultInterval
	}
	if settings.PollInterval <= 0 {
		return t.config.DefaultInterval
	}
	return settings.PollInterval
}

func (t *IntervalTrigger) fire(ctx context.Context) {
	now := time.Now()
	t.mu.Lock()
	t.lastRunAt = &now
	t.mu.Unlock()

	run, err := t.runner.RunCycle(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		t.logger.Info("cycle still running, tick skipped")
	case err != nil:
		t.logger.Error("scheduled cycle failed", zap.Error(err))
	default:
		t.logger.Debug("scheduled cycle finished",
			zap.String("run_id", run.ID.String()),
			zap.String("status", string(run.Status)),
		)
	}
}

// TriggerNow runs a cycle immediately, outside the schedule. The caller
// receives ErrSyncInProgress when a cycle already holds the run-lock.
func (t *IntervalTrigger) TriggerNow(ctx context.Context) (*domain.Run, error) {
	return t.runner.RunCycle(ctx)
}

// NextRunAt reports when the next scheduled cycle fires, nil when stopped.
func (t *IntervalTrigger) NextRunAt() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextRunAt
}

// LastRunAt reports when the last scheduled cycle fired.
func (t *IntervalTrigger) LastRunAt() *time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRunAt
}

func (t *IntervalTrigger) setNextRunAt(at *time.Time) {
	t.mu.Lock()
	t.nextRunAt = at
	t.mu.Unlock()
}
