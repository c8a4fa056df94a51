package app

import (
	"time"

	"github.com/fiffu/isitup/lib/models"
)

type OutcomeView struct {
	URL        string  `json:"url"`
	Title      string  `json:"title,omitempty"`
	Reachable  bool    `json:"reachable"`
	StatusCode *int    `json:"status_code"`
	CheckedAt  *string `json:"checked_at"`
}

func (view OutcomeView) From(entity models.SweepOutcome) OutcomeView {
	return OutcomeView{
		URL:        entity.URL,
		Title:      entity.Title,
		Reachable:  entity.Reachable,
		StatusCode: entity.StatusCode,
		CheckedAt:  isoformat(&entity.CheckedAt),
	}
}

type TrackEntryView struct {
	URL            string  `json:"url"`
	DeletionKey    string  `json:"deletion_key"`
	Label          string  `json:"label"`
	LastReachable  *bool   `json:"last_reachable"`
	LastStatusCode *int    `json:"last_status_code"`
	LastCheckedAt  *string `json:"last_checked_at"`
}

func (view TrackEntryView) From(entity models.TrackEntry) TrackEntryView {
	return TrackEntryView{
		URL:            entity.URL,
		DeletionKey:    entity.DeletionKey,
		Label:          entity.Label(),
		LastReachable:  entity.LastReachable,
		LastStatusCode: entity.LastStatusCode,
		LastCheckedAt:  isoformat(entity.LastCheckedAt),
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
