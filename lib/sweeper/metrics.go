package sweeper

import (
	"time"

	"github.com/fiffu/isitup/lib/models"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isitup_url_checks_total",
			Help: "Number of URL checks by result",
		},
		[]string{"result"},
	)

	checkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isitup_url_check_duration_seconds",
			Help:    "Duration of single URL checks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	sweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isitup_sweeps_total",
			Help: "Number of sweeps by status",
		},
		[]string{"status"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "isitup_sweep_duration_seconds",
			Help:    "Duration of complete sweeps",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	trackedURLs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isitup_tracked_urls",
			Help: "Distinct URLs in the last sweep snapshot",
		},
	)
)

func init() {
	prometheus.MustRegister(checksTotal, checkDuration, sweepsTotal, sweepDuration, trackedURLs)
}

const (
	resultUp          = "up"
	resultErrorStatus = "error_status"
	resultDown        = "down"
)

func resultOf(o models.SweepOutcome) string {
	switch {
	case !o.Reachable:
		return resultDown
	case o.IsErrorStatus():
		return resultErrorStatus
	default:
		return resultUp
	}
}

// Report summarizes one sweep.
type Report struct {
	StartedAt   time.Time
	Elapsed     time.Duration
	Checked     int
	Up          int
	ErrorStatus int
	Down        int
}

func (r *Report) add(o models.SweepOutcome) {
	r.Checked += 1
	switch resultOf(o) {
	case resultUp:
		r.Up += 1
	case resultErrorStatus:
		r.ErrorStatus += 1
	case resultDown:
		r.Down += 1
	}
}

func observeCheck(o models.SweepOutcome, elapsed time.Duration) {
	result := resultOf(o)
	checksTotal.WithLabelValues(result).Inc()
	checkDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}
