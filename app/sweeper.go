package app

import (
	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib"
	"github.com/fiffu/isitup/lib/fanout"
	"github.com/fiffu/isitup/lib/store"
	"github.com/fiffu/isitup/lib/sweeper"
	"github.com/fiffu/isitup/lib/verifier"
	"github.com/fiffu/isitup/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewNotifier(log *zap.Logger, st *store.Store, reg senders.Registry) *fanout.Notifier {
	return fanout.NewNotifier(log, st, reg)
}

// NewSweeper runs every sweep outcome through the notifier first, then records it
// as the URL's last known status.
func NewSweeper(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	st *store.Store,
	v verifier.Verifier,
	notifier *fanout.Notifier,
	svc *lib.Service,
) *sweeper.Sweeper {
	return sweeper.NewSweeper(lc, cfg, log, st, v, notifier, svc)
}
