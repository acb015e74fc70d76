// Package report renders ledger aggregates for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/sitetime/internal/storage"
)

// Entry is one domain row.
type Entry struct {
	Domain  string
	Seconds int64
	Active  bool
}

// Report is a rendered view of one period or day.
type Report struct {
	Title   string
	Entries []Entry
	Total   int64

	// Live is set when the report covers today, so the active domain keeps
	// growing between polls.
	Live bool
}

// New builds a report from a set of records, sorted by time spent (most
// first, ties by domain). active marks the focused domain, if any.
func New(title string, set storage.DaySet, active string, live bool) *Report {
	r := &Report{Title: title, Total: set.Total(), Live: live}
	for domain, rec := range set {
		r.Entries = append(r.Entries, Entry{
			Domain:  domain,
			Seconds: rec.TimeSpent,
			Active:  domain == active,
		})
	}

	sort.Slice(r.Entries, func(i, j int) bool {
		a, b := r.Entries[i], r.Entries[j]
		if a.Seconds != b.Seconds {
			return a.Seconds > b.Seconds
		}
		return a.Domain < b.Domain
	})
	return r
}

// Advance adds seconds to the active entry and the total. Reports that are
// not live, or have no active entry listed, are left alone.
func (r *Report) Advance(seconds int64) {
	if !r.Live || seconds <= 0 {
		return
	}
	for i := range r.Entries {
		if r.Entries[i].Active {
			r.Entries[i].Seconds += seconds
			r.Total += seconds
			return
		}
	}
}

// FormatDuration formats seconds as HH:MM:SS. Hours are not capped at 24.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Render writes the report to w.
func Render(w io.Writer, r *Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)

	width := len("Total")
	for _, e := range r.Entries {
		if len(e.Domain) > width {
			width = len(e.Domain)
		}
	}

	_, _ = cyan.Fprintln(w, r.Title)
	_, _ = cyan.Fprintln(w, strings.Repeat("━", width+12))

	if len(r.Entries) == 0 {
		_, _ = fmt.Fprintln(w, "No data available for this period")
		return
	}

	for _, e := range r.Entries {
		line := fmt.Sprintf("%-*s  %s", width, e.Domain, FormatDuration(e.Seconds))
		if e.Active {
			_, _ = green.Fprintln(w, line+"  ●")
			continue
		}
		_, _ = fmt.Fprintln(w, line)
	}

	_, _ = cyan.Fprintln(w, strings.Repeat("━", width+12))
	_, _ = fmt.Fprintf(w, "%-*s  %s\n", width, "Total", FormatDuration(r.Total))
}
