package models

import "time"

type Subscription struct {
	ID           uint   `gorm:"primaryKey"`
	SubscriberID int64  `gorm:"notNull;uniqueIndex:idx_subscriber_url;uniqueIndex:idx_subscriber_key"`
	DeletionKey  string `gorm:"notNull;uniqueIndex:idx_subscriber_key"`
	URL          string `gorm:"notNull;uniqueIndex:idx_subscriber_url;index:idx_url"`
	CreatedAt    time.Time
}

func (Subscription) TableName() string { return "subscriptions" }

// TrackEntry is a subscription row joined with the status of its tracked URL,
// as shown to the subscriber.
type TrackEntry struct {
	URL            string
	DeletionKey    string
	Title          string
	LastReachable  *bool
	LastStatusCode *int
	LastCheckedAt  *time.Time
}

// Label is the text a transport should show for this entry.
func (e TrackEntry) Label() string {
	if e.Title != "" {
		return e.Title
	}
	return e.URL
}
