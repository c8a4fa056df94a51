package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib/models"
	"github.com/fiffu/isitup/lib/verifier"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrSweepInProgress = errors.New("sweep already in progress")

type URLSource interface {
	AllDistinctURLs(ctx context.Context) ([]string, error)
}

// OutcomeHandler receives every outcome as soon as its check completes. Handlers
// may be called concurrently for different URLs.
type OutcomeHandler interface {
	HandleOutcome(ctx context.Context, outcome models.SweepOutcome)
}

type Options struct {
	Interval      time.Duration // Time between sweeps
	VerifyTimeout time.Duration // Upper bound on a single URL check
	Concurrency   int           // Max URL checks in flight
}

type Sweeper struct {
	log      *zap.Logger
	src      URLSource
	verifier verifier.Verifier
	handlers []OutcomeHandler
	opts     Options

	mu sync.Mutex // held while sweeping

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(log *zap.Logger, src URLSource, v verifier.Verifier, opts Options, handlers ...OutcomeHandler) *Sweeper {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Sweeper{
		log:      log,
		src:      src,
		verifier: v,
		handlers: handlers,
		opts:     opts,
	}
}

func NewSweeper(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, src URLSource, v verifier.Verifier, handlers ...OutcomeHandler) *Sweeper {
	s := New(log, src, v, Options{
		Interval:      cfg.Sweep.Interval,
		VerifyTimeout: cfg.Sweep.VerifyTimeout,
		Concurrency:   cfg.Sweep.Concurrency,
	}, handlers...)

	if !cfg.TrackFeature {
		log.Sugar().Info("Track feature is disabled, sweeper will not run")
		return s
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop sweeper")
			s.Stop()
			return nil
		},
	})
	return s
}

// Start schedules a sweep every interval. The first sweep runs one interval
// after Start. Calling Start on a running sweeper does nothing.
func (s *Sweeper) Start() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.cancel != nil {
		return nil
	}
	if s.opts.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.opts.Interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	wakeups := newAlarmClock(s.opts.Interval).Start(ctx)
	go func() {
		defer close(done)
		for t := range wakeups {
			if ctx.Err() != nil {
				return
			}
			s.runScheduled(ctx, t.UTC())
		}
	}()

	s.log.Sugar().Infow("Sweeper started", "interval", s.opts.Interval.String(), "concurrency", s.opts.Concurrency)
	return nil
}

// Stop cancels the schedule and any sweep in flight, and waits for the loop to
// exit. The sweeper can be started again afterwards.
func (s *Sweeper) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil

	s.log.Sugar().Info("Sweeper stopped")
}

func (s *Sweeper) runScheduled(ctx context.Context, wakeupTime time.Time) {
	report, err := s.Sweep(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		sweepsTotal.WithLabelValues("overlapped").Inc()
		s.log.Sugar().Infow("Previous sweep still running, skipping this one", "wakeup", wakeupTime)
		return
	case err != nil:
		sweepsTotal.WithLabelValues("skipped").Inc()
		s.log.Sugar().Errorw("Sweep skipped, will retry next interval", "err", err)
		return
	}

	sweepsTotal.WithLabelValues("completed").Inc()
	sweepDuration.Observe(report.Elapsed.Seconds())

	if report.Checked > 0 {
		args := make([]any, 0)
		if report.Up != 0 {
			args = append(args, "up", report.Up)
		}
		if report.ErrorStatus != 0 {
			args = append(args, "error_status", report.ErrorStatus)
		}
		if report.Down != 0 {
			args = append(args, "down", report.Down)
		}
		s.log.Sugar().Infow(fmt.Sprintf("Checked %d URLs", report.Checked), args...)
	}
	s.log.Sugar().Infow("Sweep completed", "elapsed_msecs", int(report.Elapsed.Milliseconds()))
}

// Sweep checks every tracked URL once and hands each outcome to the handlers as
// it arrives. URLs tracked after the snapshot is taken wait for the next sweep.
// It fails only if the snapshot cannot be read, or with ErrSweepInProgress.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	report := &Report{StartedAt: time.Now().UTC()}

	urls, err := s.src.AllDistinctURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot tracked urls: %w", err)
	}
	trackedURLs.Set(float64(len(urls)))

	var reportMu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)

	for _, url := range urls {
		url := url
		g.Go(func() error {
			start := time.Now()
			outcome := verifier.Check(ctx, s.verifier, url, s.opts.VerifyTimeout, s.log)
			observeCheck(outcome, time.Since(start))

			reportMu.Lock()
			report.add(outcome)
			reportMu.Unlock()

			s.dispatch(ctx, outcome)
			return nil
		})
	}
	g.Wait()

	report.Elapsed = time.Since(report.StartedAt)
	return report, nil
}

func (s *Sweeper) dispatch(ctx context.Context, outcome models.SweepOutcome) {
	for _, h := range s.handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Sugar().Errorw("Outcome handler panicked", "url", outcome.URL, "panic", r)
				}
			}()
			h.HandleOutcome(ctx, outcome)
		}()
	}
}
