package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goodtune/sitetime/internal/clock"
	"github.com/goodtune/sitetime/internal/dates"
	"github.com/goodtune/sitetime/internal/storage"
	"github.com/goodtune/sitetime/internal/usage"
)

const (
	// DefaultPollInterval matches how often the tracker flushes.
	DefaultPollInterval = 30 * time.Second

	// DefaultTickInterval is how often a live report is redrawn between polls.
	DefaultTickInterval = time.Second
)

const clearScreen = "\033[H\033[2J"

// Source answers viewer queries. api.Client satisfies it.
type Source interface {
	SiteData(ctx context.Context, period usage.Period) (storage.DaySet, error)
	Day(ctx context.Context, date string) (storage.DaySet, error)
	ActiveDomain(ctx context.Context) (string, bool, error)
}

// Options selects what to show.
type Options struct {
	Period usage.Period

	// Day selects one day of the week window by offset (0 is today). It is
	// only honoured with PeriodWeek; negative means the whole window.
	Day int
}

// Viewer fetches and renders reports.
type Viewer struct {
	source Source
	clock  clock.Clock
	out    io.Writer
}

// NewViewer creates a viewer writing to out.
func NewViewer(source Source, clk clock.Clock, out io.Writer) *Viewer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Viewer{source: source, clock: clk, out: out}
}

// Fetch builds a report for opts.
func (v *Viewer) Fetch(ctx context.Context, opts Options) (*Report, error) {
	now := v.clock.Now()

	var (
		set   storage.DaySet
		title string
		live  bool
		err   error
	)

	switch {
	case opts.Period == usage.PeriodWeek && opts.Day >= 0:
		if opts.Day >= dates.WeekDays {
			return nil, fmt.Errorf("day offset %d outside the %d-day window", opts.Day, dates.WeekDays)
		}
		date := dates.Week(now)[opts.Day]
		set, err = v.source.Day(ctx, date)
		title = date
		live = opts.Day == 0
	default:
		set, err = v.source.SiteData(ctx, opts.Period)
		title = titleFor(opts.Period, now)
		live = opts.Period == usage.PeriodToday
	}
	if err != nil {
		return nil, err
	}

	var active string
	if live {
		if domain, ok, err := v.source.ActiveDomain(ctx); err != nil {
			return nil, err
		} else if ok {
			active = domain
		}
	}

	return New(title, set, active, live), nil
}

// Show fetches and renders a single report.
func (v *Viewer) Show(ctx context.Context, opts Options) error {
	r, err := v.Fetch(ctx, opts)
	if err != nil {
		return err
	}
	Render(v.out, r)
	return nil
}

// Watch re-fetches every poll interval and redraws every tick, advancing the
// active domain in between. It returns when ctx is done.
func (v *Viewer) Watch(ctx context.Context, opts Options, poll, tick time.Duration) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if tick <= 0 {
		tick = DefaultTickInterval
	}

	r, err := v.Fetch(ctx, opts)
	if err != nil {
		return err
	}
	fetched := v.clock.Now()
	v.redraw(r)

	pollTicker := time.NewTicker(poll)
	defer pollTicker.Stop()
	drawTicker := time.NewTicker(tick)
	defer drawTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pollTicker.C:
			next, err := v.Fetch(ctx, opts)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				_, _ = fmt.Fprintf(v.out, "refresh failed: %v\n", err)
				continue
			}
			r, fetched = next, v.clock.Now()
			v.redraw(r)
		case <-drawTicker.C:
			shown := *r
			shown.Entries = append([]Entry(nil), r.Entries...)
			shown.Advance(int64(v.clock.Now().Sub(fetched) / time.Second))
			v.redraw(&shown)
		}
	}
}

func (v *Viewer) redraw(r *Report) {
	_, _ = io.WriteString(v.out, clearScreen)
	Render(v.out, r)
}

func titleFor(period usage.Period, now time.Time) string {
	switch period {
	case usage.PeriodToday:
		return "Today (" + dates.Today(now) + ")"
	case usage.PeriodYesterday:
		return "Yesterday (" + dates.Yesterday(now) + ")"
	case usage.PeriodWeek:
		week := dates.Week(now)
		return "Last 7 days (" + week[len(week)-1] + " to " + week[0] + ")"
	default:
		return string(period)
	}
}
