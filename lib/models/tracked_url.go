package models

import (
	"database/sql"
	"time"
)

// TrackedURL exists for as long as at least one Subscription references it.
type TrackedURL struct {
	URL            string `gorm:"primaryKey"`
	Title          string
	LastReachable  sql.NullBool
	LastStatusCode sql.NullInt64
	LastCheckedAt  sql.NullTime
	CreatedAt      time.Time
}

func (TrackedURL) TableName() string { return "tracked_urls" }
