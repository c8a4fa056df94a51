package lib

import (
	"context"

	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib/models"
	"github.com/fiffu/isitup/lib/store"
	"github.com/fiffu/isitup/lib/verifier"
	"go.uber.org/zap"
)

type TrackResult struct {
	URL            string `json:"url"`
	DeletionKey    string `json:"deletion_key"`
	AlreadyTracked bool   `json:"already_tracked"`
}

type trackURL struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	verifier verifier.Verifier
}

func (svc *trackURL) Track(ctx context.Context, subscriberID int64, url string) (*TrackResult, error) {
	normalized, err := store.Normalize(url)
	if err != nil {
		return nil, err
	}

	key, created, err := svc.store.AddSubscription(ctx, subscriberID, normalized)
	if err != nil {
		return nil, err
	}
	if created {
		svc.log.Sugar().Infof("%s added to track list of subscriber %d", normalized, subscriberID)
	}
	return &TrackResult{URL: normalized, DeletionKey: key, AlreadyTracked: !created}, nil
}

// VerifyAndTrack checks url right away, tracks it whatever the result, and seeds
// its last known status with that check.
func (svc *trackURL) VerifyAndTrack(ctx context.Context, subscriberID int64, url string) (*TrackResult, models.SweepOutcome, error) {
	normalized, err := store.Normalize(url)
	if err != nil {
		return nil, models.SweepOutcome{}, err
	}

	outcome := verifier.Check(ctx, svc.verifier, normalized, svc.cfg.Sweep.VerifyTimeout, svc.log)

	res, err := svc.Track(ctx, subscriberID, normalized)
	if err != nil {
		return nil, outcome, err
	}
	if err := svc.store.RecordCheck(ctx, outcome); err != nil {
		svc.log.Sugar().Warnw("Failed to record initial check", "url", normalized, "err", err)
	}
	return res, outcome, nil
}
