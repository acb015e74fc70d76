package bolt

import (
	"context"
	"time"

	"github.com/goodtune/sitetime/internal/storage"
	"go.etcd.io/bbolt"
)

type ledgerStore struct {
	db *bbolt.DB
}

func (s *ledgerStore) EnsureDay(ctx context.Context, date string) (bool, error) {
	created := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root, err := rootBucket(tx, bucketSiteData)
		if err != nil {
			return err
		}
		if root.Bucket([]byte(date)) != nil {
			return nil
		}
		if _, err := root.CreateBucket([]byte(date)); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *ledgerStore) GetDay(ctx context.Context, date string) (storage.DaySet, error) {
	set := make(storage.DaySet)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root, err := rootBucket(tx, bucketSiteData)
		if err != nil {
			return err
		}
		day := root.Bucket([]byte(date))
		if day == nil {
			return nil
		}
		return day.ForEach(func(k, v []byte) error {
			var record storage.DomainRecord
			if err := unmarshal(v, &record); err != nil {
				return err
			}
			set[string(k)] = record
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func (s *ledgerStore) ListDays(ctx context.Context) ([]string, error) {
	days := make([]string, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root, err := rootBucket(tx, bucketSiteData)
		if err != nil {
			return err
		}
		// Nested buckets have nil values; keys iterate in byte order, which is
		// chronological for YYYY-MM-DD.
		return root.ForEach(func(k, v []byte) error {
			if v == nil {
				days = append(days, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

func (s *ledgerStore) Accrue(ctx context.Context, date, domain string, seconds int64, at time.Time) (storage.DomainRecord, error) {
	var record storage.DomainRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		root, err := rootBucket(tx, bucketSiteData)
		if err != nil {
			return err
		}
		day, err := root.CreateBucketIfNotExists([]byte(date))
		if err != nil {
			return err
		}
		if existing := day.Get([]byte(domain)); existing != nil {
			if err := unmarshal(existing, &record); err != nil {
				return err
			}
		}
		record.TimeSpent += seconds
		record.LastUpdated = at.UnixMilli()
		data, err := marshal(record)
		if err != nil {
			return err
		}
		return day.Put([]byte(domain), data)
	})
	if err != nil {
		return storage.DomainRecord{}, err
	}
	return record, nil
}

func (s *ledgerStore) GetLastDayChecked(ctx context.Context) (string, error) {
	var date string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		meta, err := rootBucket(tx, bucketMeta)
		if err != nil {
			return err
		}
		date = string(meta.Get([]byte(keyLastDayChecked)))
		return nil
	})
	return date, err
}

func (s *ledgerStore) SetLastDayChecked(ctx context.Context, date string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		meta, err := rootBucket(tx, bucketMeta)
		if err != nil {
			return err
		}
		return meta.Put([]byte(keyLastDayChecked), []byte(date))
	})
}
