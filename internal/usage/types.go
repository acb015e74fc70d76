package usage

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPeriod is returned for a period other than today, yesterday or week.
	ErrInvalidPeriod = errors.New("usage: invalid period")

	// ErrInvalidDate is returned for a malformed date key.
	ErrInvalidDate = errors.New("usage: invalid date")
)

// ActiveSession is the currently focused tab. An empty Domain means the tab is
// focused but not trackable.
type ActiveSession struct {
	TabID     int
	Domain    string
	StartTime time.Time
}

// Tracked reports whether time spent in this session is accrued.
func (s *ActiveSession) Tracked() bool {
	return s != nil && s.Domain != ""
}

// Period is a display-time aggregation window.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodWeek      Period = "week"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodToday, PeriodYesterday, PeriodWeek:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// TabUpdate mirrors a browser tab-updated notification.
type TabUpdate struct {
	TabID  int
	Status string // "loading" or "complete"
	Active bool
	URL    string
}

// StatusComplete marks a finished navigation.
const StatusComplete = "complete"

// accrual is a pending ledger increment taken from the session under lock.
type accrual struct {
	date    string
	domain  string
	seconds int64
	at      time.Time
}
