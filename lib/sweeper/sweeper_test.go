package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fiffu/isitup/config"
	"github.com/fiffu/isitup/lib/fanout"
	"github.com/fiffu/isitup/lib/models"
	"github.com/fiffu/isitup/lib/store/storetest"
	"github.com/fiffu/isitup/lib/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"
)

type staticSource struct {
	urls  []string
	err   error
	calls atomic.Int32
}

func (s *staticSource) AllDistinctURLs(ctx context.Context) ([]string, error) {
	s.calls.Add(1)
	return s.urls, s.err
}

type recorder struct {
	mu       sync.Mutex
	outcomes []models.SweepOutcome
}

func (r *recorder) HandleOutcome(ctx context.Context, o models.SweepOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) byURL() map[string]models.SweepOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]models.SweepOutcome{}
	for _, o := range r.outcomes {
		out[o.URL] = o
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

type sinkFunc func(evt models.Event)

func (f sinkFunc) Emit(ctx context.Context, evt models.Event) error {
	f(evt)
	return nil
}

type panickingHandler struct{}

func (panickingHandler) HandleOutcome(ctx context.Context, o models.SweepOutcome) {
	panic("handler bug")
}

func statusCode(code int) *int { return &code }

func opts() Options {
	return Options{Interval: time.Hour, VerifyTimeout: time.Second, Concurrency: 2}
}

func TestSweep_TrackThenNotify(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	st := storetest.NewStore(t)

	_, _, err := st.AddSubscription(ctx, 42, "http://example.com")
	require.NoError(t, err)
	_, _, err = st.AddSubscription(ctx, 42, "http://down.example")
	require.NoError(t, err)

	v := verifier.VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		if url == "http://example.com" {
			return models.CheckResult{Reachable: true, StatusCode: statusCode(200)}, nil
		}
		return models.CheckResult{Reachable: false}, nil
	})

	var mu sync.Mutex
	var events []models.Event
	sink := sinkFunc(func(evt models.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, evt)
	})

	s := New(log, st, v, opts(), fanout.NewNotifier(log, st, sink))
	report, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Up)
	assert.Equal(t, 1, report.Down)

	require.Len(t, events, 2)
	byURL := map[string]models.Event{}
	for _, evt := range events {
		assert.Equal(t, int64(42), evt.SubscriberID)
		byURL[evt.URL] = evt
	}
	assert.True(t, byURL["http://example.com"].Reachable)
	assert.Equal(t, 200, *byURL["http://example.com"].StatusCode)
	assert.False(t, byURL["http://down.example"].Reachable)
	assert.Nil(t, byURL["http://down.example"].StatusCode)
}

func TestSweep_FailingCheckDoesNotAbortOthers(t *testing.T) {
	src := &staticSource{urls: []string{"http://a.example", "http://b.example", "http://c.example"}}
	v := verifier.VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		switch url {
		case "http://a.example":
			return models.CheckResult{}, errors.New("dns exploded")
		case "http://c.example":
			panic("verifier bug")
		}
		return models.CheckResult{Reachable: true, StatusCode: statusCode(204)}, nil
	})
	rec := &recorder{}

	s := New(zaptest.NewLogger(t), src, v, opts(), rec)
	report, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)

	got := rec.byURL()
	require.Len(t, got, 3)
	assert.False(t, got["http://a.example"].Reachable)
	assert.True(t, got["http://b.example"].Reachable)
	assert.False(t, got["http://c.example"].Reachable)
}

func TestSweep_EachURLCheckedOnce(t *testing.T) {
	src := &staticSource{urls: []string{"http://a.example", "http://b.example", "http://c.example", "http://d.example"}}

	var mu sync.Mutex
	calls := map[string]int{}
	var inFlight, maxInFlight atomic.Int32
	v := verifier.VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		calls[url]++
		mu.Unlock()
		return models.CheckResult{Reachable: true, StatusCode: statusCode(200)}, nil
	})

	s := New(zaptest.NewLogger(t), src, v, opts())
	_, err := s.Sweep(context.Background())
	require.NoError(t, err)

	for _, u := range src.urls {
		assert.Equal(t, 1, calls[u], u)
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2), "concurrency limit exceeded")
}

func TestSweep_HandlerPanicIsContained(t *testing.T) {
	src := &staticSource{urls: []string{"http://a.example"}}
	v := verifier.VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		return models.CheckResult{Reachable: true}, nil
	})
	rec := &recorder{}

	s := New(zaptest.NewLogger(t), src, v, opts(), panickingHandler{}, rec)
	_, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.len())
}

func TestSweep_StoreFailure(t *testing.T) {
	src := &staticSource{err: errors.New("store unavailable")}
	rec := &recorder{}

	s := New(zaptest.NewLogger(t), src, verifier.VerifierFunc(nil), opts(), rec)
	_, err := s.Sweep(context.Background())
	assert.ErrorContains(t, err, "store unavailable")
	assert.Zero(t, rec.len())
}

func TestSweep_RejectsOverlap(t *testing.T) {
	src := &staticSource{urls: []string{"http://slow.example"}}
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	v := verifier.VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		once.Do(func() { close(started) })
		<-release
		return models.CheckResult{Reachable: true}, nil
	})

	s := New(zaptest.NewLogger(t), src, v, Options{Interval: time.Hour, VerifyTimeout: 5 * time.Second, Concurrency: 1})

	done := make(chan error, 1)
	go func() {
		_, err := s.Sweep(context.Background())
		done <- err
	}()
	<-started

	_, err := s.Sweep(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(release)
	require.NoError(t, <-done)

	_, err = s.Sweep(context.Background())
	assert.NoError(t, err, "guard is released after the sweep")
}

func TestStartStop(t *testing.T) {
	src := &staticSource{urls: []string{"http://a.example"}}
	v := verifier.VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		return models.CheckResult{Reachable: true}, nil
	})
	rec := &recorder{}

	s := New(zaptest.NewLogger(t), src, v, Options{Interval: 20 * time.Millisecond, VerifyTimeout: time.Second, Concurrency: 1}, rec)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "starting twice is a no-op")
	assert.Eventually(t, func() bool { return rec.len() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	afterStop := src.calls.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, afterStop, src.calls.Load(), "no sweeps after Stop")

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool { return src.calls.Load() > afterStop }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestStart_FirstSweepWaitsOneInterval(t *testing.T) {
	src := &staticSource{}
	s := New(zaptest.NewLogger(t), src, verifier.VerifierFunc(nil), Options{Interval: 200 * time.Millisecond, Concurrency: 1})

	require.NoError(t, s.Start())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, src.calls.Load())
	assert.Eventually(t, func() bool { return src.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestStart_StoreFailureKeepsSchedule(t *testing.T) {
	src := &staticSource{err: errors.New("store unavailable")}
	s := New(zaptest.NewLogger(t), src, verifier.VerifierFunc(nil), Options{Interval: 10 * time.Millisecond, Concurrency: 1})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestNewSweeper_Lifecycle(t *testing.T) {
	cfg, err := config.Parse()
	require.NoError(t, err)
	cfg.Sweep.Interval = 10 * time.Millisecond

	src := &staticSource{}
	lc := fxtest.NewLifecycle(t)
	NewSweeper(lc, cfg, zaptest.NewLogger(t), src, verifier.VerifierFunc(nil))

	lc.RequireStart()
	assert.Eventually(t, func() bool { return src.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	lc.RequireStop()
}

func TestNewSweeper_TrackFeatureDisabled(t *testing.T) {
	cfg, err := config.Parse()
	require.NoError(t, err)
	cfg.Sweep.Interval = 10 * time.Millisecond
	cfg.TrackFeature = false

	src := &staticSource{}
	lc := fxtest.NewLifecycle(t)
	NewSweeper(lc, cfg, zaptest.NewLogger(t), src, verifier.VerifierFunc(nil))

	lc.RequireStart()
	time.Sleep(50 * time.Millisecond)
	lc.RequireStop()
	assert.Zero(t, src.calls.Load())
}
