package lib

import (
	"context"

	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib/models"
	"github.com/fiffu/isitup/lib/store"
	"github.com/fiffu/isitup/lib/verifier"
	"go.uber.org/zap"
)

// Service is the entry point for subscriber actions. It is the only writer of
// subscriptions.
type Service struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	verifier verifier.Verifier

	*trackURL
	*manageURLs
}

func NewService(cfg *config.Config, log *zap.Logger, st *store.Store, v verifier.Verifier) *Service {
	return &Service{
		cfg, log, st, v,
		&trackURL{cfg, log, st, v},
		&manageURLs{log, st},
	}
}

// Verify checks url once without tracking it.
func (svc *Service) Verify(ctx context.Context, url string) models.SweepOutcome {
	return verifier.Check(ctx, svc.verifier, url, svc.cfg.Sweep.VerifyTimeout, svc.log)
}

// HandleOutcome keeps the last known status of a tracked URL current.
func (svc *Service) HandleOutcome(ctx context.Context, outcome models.SweepOutcome) {
	if err := svc.store.RecordCheck(ctx, outcome); err != nil && ctx.Err() == nil {
		svc.log.Sugar().Warnw("Failed to record check", "url", outcome.URL, "err", err)
	}
}
