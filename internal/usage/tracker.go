package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/sitetime/internal/clock"
	"github.com/goodtune/sitetime/internal/dates"
	"github.com/goodtune/sitetime/internal/metrics"
	"github.com/goodtune/sitetime/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// DefaultDayCacheSize bounds the number of closed days kept in memory.
const DefaultDayCacheSize = 32

// persistTimeout bounds a ledger write once the session has been reset.
const persistTimeout = 5 * time.Second

// Tracker attributes focused time to domains and answers ledger queries
type Tracker struct {
	ledger storage.LedgerStore
	clock  clock.Clock
	days   *lru.Cache[string, storage.DaySet] // closed days only
	logger zerolog.Logger

	mu      sync.Mutex
	session *ActiveSession
}

// Config holds tracker configuration
type Config struct {
	DayCacheSize int
	Clock        clock.Clock
}

// NewTracker creates a new usage tracker
func NewTracker(ledger storage.LedgerStore, config Config, logger zerolog.Logger) (*Tracker, error) {
	if config.DayCacheSize <= 0 {
		config.DayCacheSize = DefaultDayCacheSize
	}
	if config.Clock == nil {
		config.Clock = clock.RealClock{}
	}

	days, err := lru.New[string, storage.DaySet](config.DayCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create day cache: %w", err)
	}

	return &Tracker{
		ledger: ledger,
		clock:  config.Clock,
		days:   days,
		logger: logger.With().Str("component", "usage-tracker").Logger(),
	}, nil
}

// Start prepares the ledger for today. It runs once when the process starts.
func (t *Tracker) Start(ctx context.Context) error {
	return t.EnsureDayInitialized(ctx)
}

// FocusChanged flushes time owed to the previous session and starts a new one
// for tabID. A URL without a usable domain starts an untracked session.
func (t *Tracker) FocusChanged(ctx context.Context, tabID int, rawURL string) error {
	domain, tracked := ExtractDomain(rawURL)

	t.mu.Lock()
	now := t.clock.Now()
	pending := t.takeElapsedLocked(now)
	t.session = &ActiveSession{
		TabID:     tabID,
		Domain:    domain,
		StartTime: now,
	}
	if tracked {
		metrics.ActiveSession.Set(1)
	} else {
		metrics.ActiveSession.Set(0)
	}
	t.mu.Unlock()

	t.logger.Debug().
		Int("tab_id", tabID).
		Str("domain", domain).
		Bool("tracked", tracked).
		Msg("Focus changed")

	if pending == nil {
		return nil
	}
	return t.persist(ctx, *pending)
}

// FlushElapsed accrues the whole seconds elapsed since the session started (or
// was last flushed) to the session's domain for today.
func (t *Tracker) FlushElapsed(ctx context.Context) error {
	t.mu.Lock()
	pending := t.takeElapsedLocked(t.clock.Now())
	t.mu.Unlock()

	if pending == nil {
		metrics.FlushesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	return t.persist(ctx, *pending)
}

// takeElapsedLocked resets the session start to now and returns the accrual
// owed, if any. The fractional second is dropped. Must be called with t.mu held
// so that a concurrent flush observes the reset start and computes zero.
func (t *Tracker) takeElapsedLocked(now time.Time) *accrual {
	if !t.session.Tracked() {
		return nil
	}

	elapsed := int64(now.Sub(t.session.StartTime) / time.Second)
	t.session.StartTime = now
	if elapsed <= 0 {
		return nil
	}

	return &accrual{
		date:    dates.Today(now),
		domain:  t.session.Domain,
		seconds: elapsed,
		at:      now,
	}
}

// persist writes an accrual to the ledger. The session start has already
// moved past this time, so the write must not be abandoned when the caller's
// context is cancelled.
func (t *Tracker) persist(ctx context.Context, a accrual) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	record, err := t.ledger.Accrue(ctx, a.date, a.domain, a.seconds, a.at)
	if err != nil {
		metrics.FlushesTotal.WithLabelValues("error").Inc()
		t.logger.Error().
			Err(err).
			Str("date", a.date).
			Str("domain", a.domain).
			Int64("seconds", a.seconds).
			Msg("Failed to accrue time")
		return fmt.Errorf("failed to accrue %ds to %s: %w", a.seconds, a.domain, err)
	}

	metrics.FlushesTotal.WithLabelValues("accrued").Inc()
	metrics.SecondsAccrued.Add(float64(a.seconds))

	t.logger.Debug().
		Str("date", a.date).
		Str("domain", a.domain).
		Int64("seconds", a.seconds).
		Int64("time_spent", record.TimeSpent).
		Msg("Accrued time")

	return nil
}

// EnsureDayInitialized creates today's ledger entry if it does not exist yet
func (t *Tracker) EnsureDayInitialized(ctx context.Context) error {
	today := dates.Today(t.clock.Now())

	created, err := t.ledger.EnsureDay(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to initialize day %s: %w", today, err)
	}

	if created {
		t.logger.Info().Str("date", today).Msg("Initialized ledger entry for new day")
	}
	return nil
}

// CheckRollover initializes a new day when the calendar date has moved on
// since the last check.
func (t *Tracker) CheckRollover(ctx context.Context) error {
	today := dates.Today(t.clock.Now())

	last, err := t.ledger.GetLastDayChecked(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last day checked: %w", err)
	}
	if last == today {
		return nil
	}

	if err := t.EnsureDayInitialized(ctx); err != nil {
		return err
	}
	if err := t.ledger.SetLastDayChecked(ctx, today); err != nil {
		return fmt.Errorf("failed to record last day checked: %w", err)
	}

	metrics.DayRollovers.Inc()
	t.logger.Info().
		Str("previous", last).
		Str("today", today).
		Msg("Day rollover")

	return nil
}

// QueryAggregate returns per-domain totals for a period
func (t *Tracker) QueryAggregate(ctx context.Context, period Period) (storage.DaySet, error) {
	now := t.clock.Now()

	switch period {
	case PeriodToday:
		return t.day(ctx, dates.Today(now), now)
	case PeriodYesterday:
		return t.day(ctx, dates.Yesterday(now), now)
	case PeriodWeek:
		week := dates.Week(now)
		sets := make([]storage.DaySet, 0, len(week))
		for _, date := range week {
			set, err := t.day(ctx, date, now)
			if err != nil {
				return nil, err
			}
			sets = append(sets, set)
		}
		return Merge(sets...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(period))
	}
}

// QueryDay returns the raw records for an explicit date
func (t *Tracker) QueryDay(ctx context.Context, date string) (storage.DaySet, error) {
	if !dates.Valid(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.day(ctx, date, t.clock.Now())
}

// ActiveDomain returns the domain of the focused tab, if it is tracked
func (t *Tracker) ActiveDomain() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.session.Tracked() {
		return "", false
	}
	return t.session.Domain, true
}

// Session returns a copy of the current session, or nil
func (t *Tracker) Session() *ActiveSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return nil
	}
	s := *t.session
	return &s
}

// day loads one date's records. Dates older than yesterday receive no further
// accruals, so they are served from the cache once read.
func (t *Tracker) day(ctx context.Context, date string, now time.Time) (storage.DaySet, error) {
	closed := date < dates.Yesterday(now)

	if closed {
		if set, ok := t.days.Get(date); ok {
			metrics.DayCacheHits.Inc()
			return set.Clone(), nil
		}
		metrics.DayCacheMisses.Inc()
	}

	set, err := t.ledger.GetDay(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query day %s: %w", date, err)
	}

	if closed {
		t.days.Add(date, set.Clone())
	}
	return set, nil
}
