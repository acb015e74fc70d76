package usage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultFlushInterval is how often pending focus time is persisted
	DefaultFlushInterval = 30 * time.Second

	// DefaultRolloverInterval is how often the calendar day is re-checked
	DefaultRolloverInterval = 60 * time.Second
)

// SchedulerConfig holds scheduler timing
type SchedulerConfig struct {
	FlushInterval    time.Duration
	RolloverInterval time.Duration
}

// Scheduler runs the periodic flush and rollover checks
type Scheduler struct {
	tracker          *Tracker
	flushInterval    time.Duration
	rolloverInterval time.Duration
	logger           zerolog.Logger
	stopChan         chan struct{}
	wg               sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(tracker *Tracker, config SchedulerConfig, logger zerolog.Logger) *Scheduler {
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.RolloverInterval <= 0 {
		config.RolloverInterval = DefaultRolloverInterval
	}

	return &Scheduler{
		tracker:          tracker,
		flushInterval:    config.FlushInterval,
		rolloverInterval: config.RolloverInterval,
		logger:           logger.With().Str("component", "scheduler").Logger(),
		stopChan:         make(chan struct{}),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info().
		Dur("flush_interval", s.flushInterval).
		Dur("rollover_interval", s.rolloverInterval).
		Msg("Scheduler started")
}

// Stop stops the scheduler and waits for an in-flight tick to finish
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	flush := time.NewTicker(s.flushInterval)
	defer flush.Stop()
	rollover := time.NewTicker(s.rolloverInterval)
	defer rollover.Stop()

	for {
		select {
		case <-flush.C:
			s.tick(s.flushInterval, "flush", s.tracker.FlushElapsed)
		case <-rollover.C:
			s.tick(s.rolloverInterval, "rollover", s.tracker.CheckRollover)
		case <-s.stopChan:
			return
		}
	}
}

// tick runs fn bounded by the tick interval. Failures are logged; the next
// tick retries naturally.
func (s *Scheduler) tick(interval time.Duration, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), interval)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.logger.Error().Err(err).Str("task", name).Msg("Scheduled task failed")
	}
}
