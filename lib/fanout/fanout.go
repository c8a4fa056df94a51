package fanout

import (
	"context"

	"github.com/fiffu/isitup/lib/models"
	"go.uber.org/zap"
)

// Sink delivers events to subscribers. Delivery failures are the sink's concern;
// the returned error is only logged.
type Sink interface {
	Emit(ctx context.Context, evt models.Event) error
}

type SubscriberSource interface {
	ListByURL(ctx context.Context, url string) ([]int64, error)
}

type Notifier struct {
	log  *zap.Logger
	src  SubscriberSource
	sink Sink
}

func NewNotifier(log *zap.Logger, src SubscriberSource, sink Sink) *Notifier {
	return &Notifier{log, src, sink}
}

// Notify emits one event per current subscriber of the outcome's URL and
// returns how many were emitted.
func (n *Notifier) Notify(ctx context.Context, outcome models.SweepOutcome) int {
	subscribers, err := n.src.ListByURL(ctx, outcome.URL)
	if err != nil {
		if ctx.Err() == nil {
			n.log.Sugar().Errorw("Failed to resolve subscribers", "url", outcome.URL, "err", err)
		}
		return 0
	}

	for _, id := range subscribers {
		evt := models.NewEvent(id, outcome)
		if err := n.sink.Emit(ctx, evt); err != nil && ctx.Err() == nil {
			n.log.Sugar().Warnw("Failed to emit notification", "subscriber_id", id, "url", outcome.URL, "err", err)
		}
	}
	return len(subscribers)
}

func (n *Notifier) HandleOutcome(ctx context.Context, outcome models.SweepOutcome) {
	n.Notify(ctx, outcome)
}
