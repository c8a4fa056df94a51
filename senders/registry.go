package senders

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, evt models.Event) error
}

// Registry holds the enabled senders by name. It is the notification sink: every
// event goes to every sender.
type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) (Registry, error) {
	base := base{log, cfg, transport}

	reg := Registry{}
	for _, name := range cfg.Senders {
		switch name {
		case "log":
			reg[name] = &logSender{base}
		case "webhook":
			reg[name] = &webhookSender{base}
		case "email":
			reg[name] = &mailgunSender{base}
		case "redis":
			reg[name] = newRedisSender(lc, base)
		default:
			return nil, fmt.Errorf("unsupported sender: %s", name)
		}
	}
	if len(reg) == 0 {
		log.Sugar().Warn("No senders configured, notifications will be dropped")
	}
	return reg, nil
}

func (reg Registry) Emit(ctx context.Context, evt models.Event) error {
	var errs []error
	for name, sender := range reg {
		if err := sender.Send(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}

type logSender struct {
	base
}

func (s *logSender) Send(ctx context.Context, evt models.Event) error {
	s.log.Sugar().Infow(FormatEvent(evt),
		"subscriber_id", evt.SubscriberID,
		"url", evt.URL,
		"reachable", evt.Reachable,
	)
	return nil
}
