package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestAccrueScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	defer mr.Close()

	ctx := context.Background()

	recordKey := "sitetime:site:2025-02-25:example.com"
	dayKey := "sitetime:day:2025-02-25"
	daysKey := "sitetime:days"

	tests := []struct {
		name        string
		seconds     string
		lastUpdated string
		wantTotal   int64
	}{
		{"first accrual creates record", "10", "1740477600000", 10},
		{"second accrual increments", "5", "1740477605000", 15},
		{"zero accrual keeps total", "0", "1740477606000", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.Eval(ctx, accrueScript, []string{recordKey, dayKey, daysKey},
				"2025-02-25", "example.com", tt.seconds, tt.lastUpdated).Slice()
			if err != nil {
				t.Fatalf("Script execution failed: %v", err)
			}

			total, err := toInt64(result[0])
			if err != nil {
				t.Fatalf("Failed to parse total: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("Expected total=%d, got %d", tt.wantTotal, total)
			}

			data := client.HGetAll(ctx, recordKey).Val()
			if data["last_updated"] != tt.lastUpdated {
				t.Errorf("Expected last_updated=%s, got %s", tt.lastUpdated, data["last_updated"])
			}

			if !client.SIsMember(ctx, dayKey, "example.com").Val() {
				t.Error("Expected domain in day index")
			}
			if !client.SIsMember(ctx, daysKey, "2025-02-25").Val() {
				t.Error("Expected date in days index")
			}
		})
	}

	// Records never expire
	if ttl := mr.TTL(recordKey); ttl != 0 {
		t.Errorf("Expected no TTL on record, got %v", ttl)
	}
}
