package senders

import (
	"fmt"

	"github.com/fiffu/isitup/lib/models"
)

const checkedAtLayout = "2006-01-02 15:04 MST"

// FormatEvent renders the message a subscriber reads.
func FormatEvent(evt models.Event) string {
	name := evt.URL
	if evt.Title != "" {
		name = fmt.Sprintf("%s (%s)", evt.Title, evt.URL)
	}

	var msg string
	switch {
	case !evt.Reachable:
		msg = fmt.Sprintf("%s seems to be down", name)
	case evt.IsErrorStatus():
		msg = fmt.Sprintf("%s answered with a client or server error, status code %d", name, *evt.StatusCode)
	default:
		msg = fmt.Sprintf("%s is up", name)
	}
	return fmt.Sprintf("%s. Checked at %s", msg, evt.CheckedAt.UTC().Format(checkedAtLayout))
}

type notificationPayload struct {
	Event models.Event `json:"event"`
	Text  string       `json:"text"`
}

func payloadOf(evt models.Event) notificationPayload {
	return notificationPayload{Event: evt, Text: FormatEvent(evt)}
}
