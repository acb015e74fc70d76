package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/sitetime/internal/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the ledger.
const DefaultKeyPrefix = "sitetime"

type ledgerStore struct {
	client *redis.Client
	prefix string
	accrue *redis.Script
}

func newLedgerStore(client *redis.Client, prefix string) *ledgerStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &ledgerStore{
		client: client,
		prefix: prefix,
		accrue: redis.NewScript(accrueScript),
	}
}

func (s *ledgerStore) daysKey() string {
	return s.prefix + ":days"
}

func (s *ledgerStore) dayKey(date string) string {
	return fmt.Sprintf("%s:day:%s", s.prefix, date)
}

func (s *ledgerStore) recordKey(date, domain string) string {
	return fmt.Sprintf("%s:site:%s:%s", s.prefix, date, domain)
}

func (s *ledgerStore) lastDayCheckedKey() string {
	return s.prefix + ":last_day_checked"
}

// EnsureDay registers the date in the day index
func (s *ledgerStore) EnsureDay(ctx context.Context, date string) (bool, error) {
	added, err := s.client.SAdd(ctx, s.daysKey(), date).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

// GetDay retrieves every domain record for a date
func (s *ledgerStore) GetDay(ctx context.Context, date string) (storage.DaySet, error) {
	domains, err := s.client.SMembers(ctx, s.dayKey(date)).Result()
	if err != nil {
		return nil, err
	}

	set := make(storage.DaySet, len(domains))
	if len(domains) == 0 {
		return set, nil
	}

	// Use pipeline for batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(domains))

	for i, domain := range domains {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(date, domain))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("domain %s: %w", domains[i], err)
		}
		if len(data) == 0 {
			continue
		}

		record, err := parseDomainRecord(data)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", domains[i], err)
		}
		set[domains[i]] = record
	}

	return set, nil
}

// ListDays returns all known dates in ascending order
func (s *ledgerStore) ListDays(ctx context.Context) ([]string, error) {
	days, err := s.client.SMembers(ctx, s.daysKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(days)
	return days, nil
}

// Accrue atomically increments (or creates) a domain record
func (s *ledgerStore) Accrue(ctx context.Context, date, domain string, seconds int64, at time.Time) (storage.DomainRecord, error) {
	keys := []string{s.recordKey(date, domain), s.dayKey(date), s.daysKey()}
	args := []interface{}{date, domain, seconds, at.UnixMilli()}

	reply, err := s.accrue.Run(ctx, s.client, keys, args...).Slice()
	if err != nil {
		return storage.DomainRecord{}, err
	}
	if len(reply) != 2 {
		return storage.DomainRecord{}, fmt.Errorf("unexpected accrue reply length %d", len(reply))
	}

	timeSpent, err := toInt64(reply[0])
	if err != nil {
		return storage.DomainRecord{}, fmt.Errorf("parse time_spent: %w", err)
	}
	lastUpdated, err := toInt64(reply[1])
	if err != nil {
		return storage.DomainRecord{}, fmt.Errorf("parse last_updated: %w", err)
	}

	return storage.DomainRecord{TimeSpent: timeSpent, LastUpdated: lastUpdated}, nil
}

// GetLastDayChecked returns the stored rollover marker
func (s *ledgerStore) GetLastDayChecked(ctx context.Context) (string, error) {
	date, err := s.client.Get(ctx, s.lastDayCheckedKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return date, err
}

// SetLastDayChecked stores the rollover marker
func (s *ledgerStore) SetLastDayChecked(ctx context.Context, date string) error {
	return s.client.Set(ctx, s.lastDayCheckedKey(), date, 0).Err()
}
