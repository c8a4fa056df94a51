package senders

import (
	"context"
	"fmt"

	"github.com/fiffu/isitup/lib/models"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (s *mailgunSender) Send(ctx context.Context, evt models.Event) error {
	mg := mailgun.NewMailgun(s.cfg.Mailgun.Domain, s.cfg.Mailgun.APIKey)
	if s.cfg.Mailgun.APIBase != "" {
		mg.SetAPIBase(s.cfg.Mailgun.APIBase)
	}
	mg.Client().Transport = s.transport

	subject := fmt.Sprintf("[isitup] %s", evt.URL)
	message := mg.NewMessage(s.cfg.Mailgun.From, subject, FormatEvent(evt), s.cfg.Mailgun.Recipient)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Mailgun.Timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	if err != nil {
		return err
	}
	s.log.Sugar().Debugw("Mail queued", "id", id, "subscriber_id", evt.SubscriberID, "url", evt.URL)
	return nil
}
