package storage

// DomainRecord is the time accrued to one domain on one day.
type DomainRecord struct {
	TimeSpent   int64 `json:"timeSpent"`   // seconds
	LastUpdated int64 `json:"lastUpdated"` // unix milliseconds
}

// DaySet holds the records for a single date, keyed by domain.
type DaySet map[string]DomainRecord

// Clone returns a copy of the set that shares no state with s.
func (s DaySet) Clone() DaySet {
	out := make(DaySet, len(s))
	for domain, record := range s {
		out[domain] = record
	}
	return out
}

// Total returns the summed time across all domains in seconds.
func (s DaySet) Total() int64 {
	var total int64
	for _, record := range s {
		total += record.TimeSpent
	}
	return total
}

// Ledger is the persisted document: every day plus the rollover marker.
type Ledger struct {
	SiteData       map[string]DaySet `json:"siteData"`
	LastDayChecked string            `json:"lastDayChecked,omitempty"`
}
