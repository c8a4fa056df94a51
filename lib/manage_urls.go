package lib

import (
	"context"

	"github.com/fiffu/isitup/lib/models"
	"github.com/fiffu/isitup/lib/store"
	"go.uber.org/zap"
)

// Listing is a subscriber's tracked URLs in the order they were added.
type Listing struct {
	Entries []models.TrackEntry
}

// Empty reports that the subscriber tracks nothing. This is not an error.
func (l Listing) Empty() bool {
	return len(l.Entries) == 0
}

// Option is one selectable entry for a delete prompt.
type Option struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

func (l Listing) Options() []Option {
	opts := make([]Option, len(l.Entries))
	for i, e := range l.Entries {
		opts[i] = Option{Label: e.Label(), Key: e.DeletionKey}
	}
	return opts
}

type manageURLs struct {
	log   *zap.Logger
	store *store.Store
}

func (svc *manageURLs) ListURLs(ctx context.Context, subscriberID int64) (Listing, error) {
	entries, err := svc.store.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Entries: entries}, nil
}

// Delete drops the subscription with the given key. It reports false, without
// error, when the subscriber has no such key.
func (svc *manageURLs) Delete(ctx context.Context, subscriberID int64, key string) (bool, error) {
	ok, err := svc.store.DeleteByKey(ctx, subscriberID, key)
	if err != nil {
		return false, err
	}
	if ok {
		svc.log.Sugar().Infow("Subscription deleted", "subscriber_id", subscriberID, "key", key)
	}
	return ok, nil
}
