package storage

import (
	"context"
	"fmt"
	"time"
)

// Store represents the root storage interface.
type Store interface {
	Close() error
	Ledger() LedgerStore
}

// LedgerStore manages the per-day, per-domain time ledger.
type LedgerStore interface {
	// EnsureDay creates an empty entry for date if none exists and reports
	// whether it was created.
	EnsureDay(ctx context.Context, date string) (bool, error)
	// GetDay returns the records for date. A missing date yields an empty,
	// non-nil set.
	GetDay(ctx context.Context, date string) (DaySet, error)
	// ListDays returns every date key present in the ledger, ascending.
	ListDays(ctx context.Context) ([]string, error)
	// Accrue adds seconds to the record for (date, domain), creating it if
	// needed, stamps lastUpdated with at and returns the updated record.
	Accrue(ctx context.Context, date, domain string, seconds int64, at time.Time) (DomainRecord, error)
	// GetLastDayChecked returns the last rollover date, or "" if never set.
	GetLastDayChecked(ctx context.Context) (string, error)
	SetLastDayChecked(ctx context.Context, date string) error
}

// Snapshot reads the whole ledger into its persisted document form.
func Snapshot(ctx context.Context, ledger LedgerStore) (*Ledger, error) {
	days, err := ledger.ListDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	snapshot := &Ledger{SiteData: make(map[string]DaySet, len(days))}
	for _, date := range days {
		set, err := ledger.GetDay(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("get day %s: %w", date, err)
		}
		snapshot.SiteData[date] = set
	}

	snapshot.LastDayChecked, err = ledger.GetLastDayChecked(ctx)
	if err != nil {
		return nil, fmt.Errorf("get last day checked: %w", err)
	}

	return snapshot, nil
}
