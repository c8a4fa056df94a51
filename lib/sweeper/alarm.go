package sweeper

import (
	"context"
	"time"
)

type alarmClock struct {
	interval time.Duration
}

func newAlarmClock(interval time.Duration) *alarmClock {
	return &alarmClock{interval}
}

// Start delivers a wakeup every interval until ctx ends, then closes the channel.
// There is no immediate wakeup. At most one wakeup is held while the receiver is
// busy, later ones are dropped.
func (a *alarmClock) Start(ctx context.Context) <-chan time.Time {
	c := make(chan time.Time, 1)
	ticker := time.NewTicker(a.interval)

	go func() {
		defer close(c)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case c <- t:
				default:
				}
			}
		}
	}()

	return c
}
