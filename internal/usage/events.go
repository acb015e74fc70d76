package usage

import (
	"context"

	"github.com/goodtune/sitetime/internal/metrics"
)

// TabActivated handles the browser switching focus to another tab.
func (t *Tracker) TabActivated(ctx context.Context, tabID int, rawURL string) error {
	_, tracked := ExtractDomain(rawURL)
	metrics.FocusChanges.WithLabelValues("activated", boolLabel(tracked)).Inc()

	return t.FocusChanged(ctx, tabID, rawURL)
}

// TabUpdated handles a navigation update. Only completed loads in the active
// tab change focus; everything else is ignored.
func (t *Tracker) TabUpdated(ctx context.Context, update TabUpdate) error {
	if update.Status != StatusComplete || !update.Active {
		return nil
	}

	_, tracked := ExtractDomain(update.URL)
	metrics.FocusChanges.WithLabelValues("updated", boolLabel(tracked)).Inc()

	return t.FocusChanged(ctx, update.TabID, update.URL)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
