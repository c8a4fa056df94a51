package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/fiffu/isitup/lib/models"
	"go.uber.org/zap"
)

type verifyResult struct {
	res models.CheckResult
	err error
}

// Check verifies url and turns whatever happens into an outcome. A verifier that
// errors, panics or outlives the timeout yields an unreachable outcome.
func Check(ctx context.Context, v Verifier, url string, timeout time.Duration, log *zap.Logger) models.SweepOutcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Buffered so the goroutine can always finish, even once we stop waiting.
	done := make(chan verifyResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- verifyResult{err: fmt.Errorf("verifier panicked: %v", r)}
			}
		}()
		res, err := v.Verify(ctx, url)
		done <- verifyResult{res, err}
	}()

	var r verifyResult
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}

	outcome := models.SweepOutcome{URL: url, CheckedAt: time.Now().UTC()}
	if r.err != nil {
		log.Sugar().Warnw("Check failed, treating URL as unreachable", "url", url, "err", r.err)
		return outcome
	}

	outcome.Reachable = r.res.Reachable
	outcome.StatusCode = r.res.StatusCode
	outcome.Title = r.res.Title
	return outcome
}
