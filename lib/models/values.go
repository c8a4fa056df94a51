package models

import "time"

// CheckResult is what a verifier reports for a single URL. A nil StatusCode
// means no HTTP response was received.
type CheckResult struct {
	Reachable  bool
	StatusCode *int
	Title      string
}

// SweepOutcome is the result of checking one tracked URL. It is never persisted
// as-is.
type SweepOutcome struct {
	URL        string
	Reachable  bool
	StatusCode *int
	Title      string
	CheckedAt  time.Time
}

// IsErrorStatus reports whether the URL answered with a client or server error.
func (o SweepOutcome) IsErrorStatus() bool {
	return o.StatusCode != nil && *o.StatusCode >= 400 && *o.StatusCode < 600
}

// Event is a notification addressed to a single subscriber.
type Event struct {
	SubscriberID int64     `json:"subscriber_id"`
	URL          string    `json:"url"`
	Title        string    `json:"title,omitempty"`
	Reachable    bool      `json:"reachable"`
	StatusCode   *int      `json:"status_code"`
	CheckedAt    time.Time `json:"checked_at"`
}

func NewEvent(subscriberID int64, outcome SweepOutcome) Event {
	return Event{
		SubscriberID: subscriberID,
		URL:          outcome.URL,
		Title:        outcome.Title,
		Reachable:    outcome.Reachable,
		StatusCode:   outcome.StatusCode,
		CheckedAt:    outcome.CheckedAt,
	}
}

func (e Event) IsErrorStatus() bool {
	return e.StatusCode != nil && *e.StatusCode >= 400 && *e.StatusCode < 600
}
