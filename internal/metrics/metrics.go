package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunDuration tracks how long a full generation run takes, by outcome.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adprint_run_duration_seconds",
			Help:    "Duration of ad generation runs in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120, 180},
		},
		[]string{"status"}, // success or failure
	)

	// ModelCallDuration tracks single text or image model calls.
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adprint_model_call_duration_seconds",
			Help:    "Duration of model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"stage", "status"},
	)

	AdsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adprint_ads_generated_total",
		Help: "Number of ads delivered to users",
	})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adprint_quota_rejections_total",
		Help: "Start or submit attempts refused because the free tier is used up",
	})

	QuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adprint_quota_remaining",
		Help: "Free creations left in this process",
	})
)

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordRun records a finished run and the number of ads it produced.
func RecordRun(started time.Time, ads int, err error) {
	RunDuration.WithLabelValues(status(err)).Observe(time.Since(started).Seconds())
	if err == nil {
		AdsGenerated.Add(float64(ads))
	}
}

func RecordModelCall(stage string, started time.Time, err error) {
	ModelCallDuration.WithLabelValues(stage, status(err)).Observe(time.Since(started).Seconds())
}

func RecordQuotaRejection() { QuotaRejections.Inc() }

func SetQuotaRemaining(n int) { QuotaRemaining.Set(float64(n)) }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
