package usage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goodtune/sitetime/internal/clock"
	"github.com/goodtune/sitetime/internal/metrics"
	"github.com/goodtune/sitetime/internal/storage"
	"github.com/goodtune/sitetime/internal/storage/bolt"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

// morning is a fixed local time well clear of midnight.
var morning = time.Date(2025, time.February, 25, 10, 0, 0, 0, time.Local)

func newTestTracker(t *testing.T, start time.Time) (*Tracker, *clock.TestClock, storage.LedgerStore) {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "sitetime.bolt"))
	if err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewTestClock(start)
	tracker, err := NewTracker(store.Ledger(), Config{Clock: clk}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	return tracker, clk, store.Ledger()
}

func spent(set storage.DaySet) map[string]int64 {
	out := make(map[string]int64, len(set))
	for domain, rec := range set {
		out[domain] = rec.TimeSpent
	}
	return out
}

func assertSpent(t *testing.T, got storage.DaySet, want map[string]int64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("Expected %d domains, got %v", len(want), spent(got))
	}
	for domain, seconds := range want {
		if got[domain].TimeSpent != seconds {
			t.Errorf("Expected %s = %ds, got %ds", domain, seconds, got[domain].TimeSpent)
		}
	}
}

func TestTrackerFocusSequence(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	steps := []struct {
		url  string
		hold time.Duration
	}{
		{"https://www.example.com/inbox", 10 * time.Second},
		{"https://news.org/today", 5 * time.Second},
		{"https://example.com/other", 3 * time.Second},
	}
	for i, step := range steps {
		if err := tracker.FocusChanged(ctx, i+1, step.url); err != nil {
			t.Fatalf("FocusChanged(%s) failed: %v", step.url, err)
		}
		clk.Advance(step.hold)
	}
	if err := tracker.FocusChanged(ctx, 99, "chrome://newtab"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, today, map[string]int64{"example.com": 13, "news.org": 5})

	if got := today["example.com"].LastUpdated; got != morning.Add(18*time.Second).UnixMilli() {
		t.Errorf("Expected lastUpdated at the final flush, got %d", got)
	}
}

func TestTrackerFlushDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	if err := tracker.FocusChanged(ctx, 1, "https://example.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(30 * time.Second)

	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("first flush failed: %v", err)
	}
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("second flush failed: %v", err)
	}

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, today, map[string]int64{"example.com": 30})
}

func TestTrackerConcurrentFlushes(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	if err := tracker.FocusChanged(ctx, 1, "https://example.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(10 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tracker.FlushElapsed(ctx); err != nil {
				t.Errorf("FlushElapsed failed: %v", err)
			}
		}()
	}
	wg.Wait()

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, today, map[string]int64{"example.com": 10})
}

func TestTrackerDropsFractionalSeconds(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	if err := tracker.FocusChanged(ctx, 1, "https://example.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}

	clk.Advance(1500 * time.Millisecond)
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("FlushElapsed failed: %v", err)
	}

	// The sub-second remainder is not carried into the next flush
	clk.Advance(700 * time.Millisecond)
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("FlushElapsed failed: %v", err)
	}

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, today, map[string]int64{"example.com": 1})
}

func TestTrackerUntrackedSession(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	if err := tracker.FocusChanged(ctx, 7, "about:blank"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(time.Minute)
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("FlushElapsed failed: %v", err)
	}

	if _, ok := tracker.ActiveDomain(); ok {
		t.Error("Expected no active domain for an untracked tab")
	}
	session := tracker.Session()
	if session == nil || session.TabID != 7 || session.Tracked() {
		t.Errorf("Expected untracked session for tab 7, got %+v", session)
	}

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	if len(today) != 0 {
		t.Errorf("Expected nothing accrued, got %v", spent(today))
	}
}

func TestTrackerActiveDomain(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, morning)

	if _, ok := tracker.ActiveDomain(); ok {
		t.Error("Expected no active domain before any focus")
	}
	if tracker.Session() != nil {
		t.Error("Expected nil session before any focus")
	}

	if err := tracker.FocusChanged(ctx, 3, "https://www.github.com/goodtune"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}

	domain, ok := tracker.ActiveDomain()
	if !ok || domain != "github.com" {
		t.Errorf("Expected active domain github.com, got %q (%v)", domain, ok)
	}
}

func TestTrackerEmptyToday(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, morning)

	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for _, period := range []Period{PeriodToday, PeriodYesterday, PeriodWeek} {
		set, err := tracker.QueryAggregate(ctx, period)
		if err != nil {
			t.Fatalf("QueryAggregate(%s) failed: %v", period, err)
		}
		if set == nil || len(set) != 0 {
			t.Errorf("Expected empty non-nil set for %s, got %v", period, set)
		}
	}
}

func TestTrackerInvalidQueries(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, morning)

	if _, err := tracker.QueryAggregate(ctx, Period("month")); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := tracker.QueryDay(ctx, "25-02-2025"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("Expected ErrInvalidDate, got %v", err)
	}
}

func TestTrackerRollover(t *testing.T) {
	ctx := context.Background()
	tracker, clk, ledger := newTestTracker(t, morning)

	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := tracker.CheckRollover(ctx); err != nil {
		t.Fatalf("CheckRollover failed: %v", err)
	}

	if err := tracker.FocusChanged(ctx, 1, "https://example.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(20 * time.Second)
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("FlushElapsed failed: %v", err)
	}

	// Next morning
	clk.Set(morning.AddDate(0, 0, 1))
	if err := tracker.CheckRollover(ctx); err != nil {
		t.Fatalf("CheckRollover failed: %v", err)
	}

	days, err := ledger.ListDays(ctx)
	if err != nil {
		t.Fatalf("ListDays failed: %v", err)
	}
	if len(days) != 2 || days[0] != "2025-02-25" || days[1] != "2025-02-26" {
		t.Errorf("Expected both days initialized, got %v", days)
	}

	last, err := ledger.GetLastDayChecked(ctx)
	if err != nil {
		t.Fatalf("GetLastDayChecked failed: %v", err)
	}
	if last != "2025-02-26" {
		t.Errorf("Expected last day checked 2025-02-26, got %s", last)
	}

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	if len(today) != 0 {
		t.Errorf("Expected empty new day, got %v", spent(today))
	}

	yesterday, err := tracker.QueryAggregate(ctx, PeriodYesterday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, yesterday, map[string]int64{"example.com": 20})
}

func TestTrackerAccruesToFlushDate(t *testing.T) {
	ctx := context.Background()
	beforeMidnight := time.Date(2025, time.February, 25, 23, 59, 50, 0, time.Local)
	tracker, clk, _ := newTestTracker(t, beforeMidnight)

	if err := tracker.FocusChanged(ctx, 1, "https://example.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(20 * time.Second)
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("FlushElapsed failed: %v", err)
	}

	prev, err := tracker.QueryDay(ctx, "2025-02-25")
	if err != nil {
		t.Fatalf("QueryDay failed: %v", err)
	}
	if len(prev) != 0 {
		t.Errorf("Expected the closed day untouched, got %v", spent(prev))
	}

	next, err := tracker.QueryDay(ctx, "2025-02-26")
	if err != nil {
		t.Fatalf("QueryDay failed: %v", err)
	}
	assertSpent(t, next, map[string]int64{"example.com": 20})
}

func TestTrackerWeekAggregate(t *testing.T) {
	ctx := context.Background()
	tracker, _, ledger := newTestTracker(t, morning)

	seed := []struct {
		date    string
		domain  string
		seconds int64
	}{
		{"2025-02-25", "example.com", 10},
		{"2025-02-24", "example.com", 5},
		{"2025-02-22", "news.org", 7},
		{"2025-02-19", "example.com", 1},
		{"2025-02-18", "example.com", 1000}, // eight days ago, outside the week
	}
	for _, s := range seed {
		if _, err := ledger.Accrue(ctx, s.date, s.domain, s.seconds, morning); err != nil {
			t.Fatalf("seed Accrue failed: %v", err)
		}
	}

	week, err := tracker.QueryAggregate(ctx, PeriodWeek)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, week, map[string]int64{"example.com": 16, "news.org": 7})

	// A second read is served from the closed-day cache and must agree
	again, err := tracker.QueryAggregate(ctx, PeriodWeek)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, again, map[string]int64{"example.com": 16, "news.org": 7})
}

func TestTrackerCachedDaysAreIsolated(t *testing.T) {
	ctx := context.Background()
	tracker, _, ledger := newTestTracker(t, morning)

	if _, err := ledger.Accrue(ctx, "2025-02-20", "example.com", 42, morning); err != nil {
		t.Fatalf("seed Accrue failed: %v", err)
	}

	first, err := tracker.QueryDay(ctx, "2025-02-20")
	if err != nil {
		t.Fatalf("QueryDay failed: %v", err)
	}
	first["example.com"] = storage.DomainRecord{TimeSpent: 0}
	delete(first, "example.com")

	second, err := tracker.QueryDay(ctx, "2025-02-20")
	if err != nil {
		t.Fatalf("QueryDay failed: %v", err)
	}
	assertSpent(t, second, map[string]int64{"example.com": 42})
}

type failingLedger struct {
	storage.LedgerStore
}

func (failingLedger) Accrue(context.Context, string, string, int64, time.Time) (storage.DomainRecord, error) {
	return storage.DomainRecord{}, errors.New("disk full")
}

func TestTrackerAccrueFailure(t *testing.T) {
	ctx := context.Background()
	_, _, ledger := newTestTracker(t, morning)

	clk := clock.NewTestClock(morning)
	tracker, err := NewTracker(failingLedger{ledger}, Config{Clock: clk}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}

	if err := tracker.FocusChanged(ctx, 1, "https://example.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(5 * time.Second)

	if err := tracker.FlushElapsed(ctx); err == nil {
		t.Error("Expected flush to report the ledger failure")
	}

	// The session keeps running from the failed flush
	session := tracker.Session()
	if session == nil || !session.StartTime.Equal(morning.Add(5*time.Second)) {
		t.Errorf("Expected session restarted at flush time, got %+v", session)
	}
}

func TestTrackerCancelledFocusChangeKeepsTime(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	if err := tracker.FocusChanged(ctx, 1, "https://a.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(10 * time.Second)

	// The sender gave up on the request before it was handled
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := tracker.FocusChanged(cancelled, 2, "https://b.com"); err != nil {
		t.Fatalf("FocusChanged with cancelled context failed: %v", err)
	}
	clk.Advance(5 * time.Second)

	if err := tracker.FocusChanged(ctx, 1, "https://a.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}

	today, err := tracker.QueryAggregate(ctx, PeriodToday)
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	assertSpent(t, today, map[string]int64{"a.com": 10, "b.com": 5})
}

func metricValue(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()

	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("read metric: %v", err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestTrackerSecondsAccruedMetric(t *testing.T) {
	ctx := context.Background()
	tracker, clk, _ := newTestTracker(t, morning)

	before := metricValue(t, metrics.SecondsAccrued)

	if err := tracker.FocusChanged(ctx, 1, "https://a.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(7 * time.Second)
	if err := tracker.FocusChanged(ctx, 2, "https://b.com"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	clk.Advance(3 * time.Second)
	if err := tracker.FlushElapsed(ctx); err != nil {
		t.Fatalf("FlushElapsed failed: %v", err)
	}

	if got := metricValue(t, metrics.SecondsAccrued) - before; got != 10 {
		t.Errorf("Expected 10 seconds accrued, got %v", got)
	}
}

func TestTrackerActiveSessionGauge(t *testing.T) {
	ctx := context.Background()
	tracker, _, _ := newTestTracker(t, morning)

	urls := []string{"https://a.com", "about:blank", "https://b.com", ""}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = tracker.FocusChanged(ctx, i, urls[i%len(urls)])
		}(i)
	}
	wg.Wait()

	want := 0.0
	if tracker.Session().Tracked() {
		want = 1
	}
	if got := metricValue(t, metrics.ActiveSession); got != want {
		t.Errorf("Expected active session gauge %v for session %+v, got %v", want, tracker.Session(), got)
	}

	if err := tracker.FocusChanged(ctx, 1, "about:blank"); err != nil {
		t.Fatalf("FocusChanged failed: %v", err)
	}
	if got := metricValue(t, metrics.ActiveSession); got != 0 {
		t.Errorf("Expected gauge 0 on untracked tab, got %v", got)
	}
}
