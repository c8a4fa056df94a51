package senders

import (
	"context"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/isitup/lib/models"
)

type webhookSender struct {
	base
}

func (s *webhookSender) Send(ctx context.Context, evt models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Webhook.Timeout)
	defer cancel()

	return requests.URL(s.cfg.Webhook.URL).
		Transport(s.transport).
		BodyJSON(payloadOf(evt)).
		Fetch(ctx)
}
