package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fiffu/isitup/lib/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	ErrStoreUnavailable = errors.New("subscription store unavailable")
	ErrInvalidURL       = errors.New("invalid url")
)

// Open connects to the SQLite database at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases shared and writes serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.TrackedURL{}, &models.Subscription{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Store owns TrackedURL and Subscription records. Every method is atomic with
// respect to the others.
type Store struct {
	db     *gorm.DB
	mu     sync.Mutex
	newKey func() string
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, newKey: uuid.NewString}
}

// unavailable marks err as a store failure. Context errors belong to the caller
// and are returned as is.
func unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable(err)
	}
	return unavailable(sqlDB.PingContext(ctx))
}

// AddSubscription tracks url for the subscriber. Adding an existing pair returns
// the key issued the first time, with created set to false.
func (s *Store) AddSubscription(ctx context.Context, subscriberID int64, rawURL string) (key string, created bool, err error) {
	u, err := Normalize(rawURL)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := tx.Where("subscriber_id = ? AND url = ?", subscriberID, u).Take(&existing).Error
		switch {
		case err == nil:
			key = existing.DeletionKey
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		tracked := &models.TrackedURL{URL: u}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(tracked).Error; err != nil {
			return err
		}

		sub := &models.Subscription{
			SubscriberID: subscriberID,
			DeletionKey:  s.newKey(),
			URL:          u,
		}
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		key, created = sub.DeletionKey, true
		return nil
	})
	if err != nil {
		return "", false, unavailable(err)
	}
	return key, created, nil
}

// ListByURL returns the ids of every subscriber watching url.
func (s *Store) ListByURL(ctx context.Context, rawURL string) ([]int64, error) {
	u, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	tx := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("url = ?", u).
		Order("subscriber_id").
		Pluck("subscriber_id", &ids)
	if err := tx.Error; err != nil {
		return nil, unavailable(err)
	}
	return ids, nil
}

type trackEntryRow struct {
	URL            string
	DeletionKey    string
	Title          string
	LastReachable  sql.NullBool
	LastStatusCode sql.NullInt64
	LastCheckedAt  sql.NullTime
}

func (row trackEntryRow) entry() models.TrackEntry {
	e := models.TrackEntry{URL: row.URL, DeletionKey: row.DeletionKey, Title: row.Title}
	if row.LastReachable.Valid {
		e.LastReachable = &row.LastReachable.Bool
	}
	if row.LastStatusCode.Valid {
		code := int(row.LastStatusCode.Int64)
		e.LastStatusCode = &code
	}
	if row.LastCheckedAt.Valid {
		e.LastCheckedAt = &row.LastCheckedAt.Time
	}
	return e
}

// ListBySubscriber returns the subscriber's URLs in the order they were added.
func (s *Store) ListBySubscriber(ctx context.Context, subscriberID int64) ([]models.TrackEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []trackEntryRow
	tx := s.db.WithContext(ctx).
		Table("subscriptions").
		Select("subscriptions.url, subscriptions.deletion_key, tracked_urls.title, " +
			"tracked_urls.last_reachable, tracked_urls.last_status_code, tracked_urls.last_checked_at").
		Joins("JOIN tracked_urls ON tracked_urls.url = subscriptions.url").
		Where("subscriptions.subscriber_id = ?", subscriberID).
		Order("subscriptions.id").
		Scan(&rows)
	if err := tx.Error; err != nil {
		return nil, unavailable(err)
	}

	entries := make([]models.TrackEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry()
	}
	return entries, nil
}

func (s *Store) AllDistinctURLs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var urls []string
	tx := s.db.WithContext(ctx).Model(&models.TrackedURL{}).Order("url").Pluck("url", &urls)
	if err := tx.Error; err != nil {
		return nil, unavailable(err)
	}
	return urls, nil
}

// DeleteByKey removes the subscriber's subscription with the given key. It reports
// false if there was none. The tracked URL goes with its last subscription.
func (s *Store) DeleteByKey(ctx context.Context, subscriberID int64, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("subscriber_id = ? AND deletion_key = ?", subscriberID, key).Take(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		if err := tx.Delete(&sub).Error; err != nil {
			return err
		}
		deleted = true

		var remaining int64
		if err := tx.Model(&models.Subscription{}).Where("url = ?", sub.URL).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Delete(&models.TrackedURL{}, "url = ?", sub.URL).Error
		}
		return nil
	})
	if err != nil {
		return false, unavailable(err)
	}
	return deleted, nil
}

// RecordCheck stores the outcome as the URL's last known status. URLs that are
// no longer tracked are left alone.
func (s *Store) RecordCheck(ctx context.Context, outcome models.SweepOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	checkedAt := outcome.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	values := map[string]any{
		"last_reachable":   outcome.Reachable,
		"last_status_code": nil,
		"last_checked_at":  checkedAt,
	}
	if outcome.StatusCode != nil {
		values["last_status_code"] = *outcome.StatusCode
	}
	if outcome.Title != "" {
		values["title"] = outcome.Title
	}

	tx := s.db.WithContext(ctx).Model(&models.TrackedURL{}).Where("url = ?", outcome.URL).Updates(values)
	return unavailable(tx.Error)
}

// Get returns the tracked URL record, or nil if url is not tracked.
func (s *Store) Get(ctx context.Context, rawURL string) (*models.TrackedURL, error) {
	u, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var tracked models.TrackedURL
	err = s.db.WithContext(ctx).Where("url = ?", u).Take(&tracked).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, unavailable(err)
	}
	return &tracked, nil
}
