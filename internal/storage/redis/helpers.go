package redis

import (
	"fmt"
	"strconv"

	"github.com/goodtune/sitetime/internal/storage"
)

// parseDomainRecord converts a Redis hash to DomainRecord. Missing fields read
// as zero.
func parseDomainRecord(data map[string]string) (storage.DomainRecord, error) {
	var record storage.DomainRecord

	if v, ok := data["time_spent"]; ok && v != "" {
		timeSpent, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return record, fmt.Errorf("failed to parse time_spent: %w", err)
		}
		record.TimeSpent = timeSpent
	}

	if v, ok := data["last_updated"]; ok && v != "" {
		lastUpdated, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return record, fmt.Errorf("failed to parse last_updated: %w", err)
		}
		record.LastUpdated = lastUpdated
	}

	return record, nil
}

// toInt64 converts a Lua integer reply element.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected reply type %T", v)
	}
}
