package usage

import "github.com/goodtune/sitetime/internal/storage"

// Merge combines day sets by summing time spent and keeping the latest
// lastUpdated per domain. The result is independent of argument order and
// never aliases the inputs.
func Merge(days ...storage.DaySet) storage.DaySet {
	out := make(storage.DaySet)
	for _, day := range days {
		for domain, record := range day {
			merged, ok := out[domain]
			if !ok {
				out[domain] = record
				continue
			}
			merged.TimeSpent += record.TimeSpent
			if record.LastUpdated > merged.LastUpdated {
				merged.LastUpdated = record.LastUpdated
			}
			out[domain] = merged
		}
	}
	return out
}
