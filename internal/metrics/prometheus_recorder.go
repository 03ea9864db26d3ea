package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration     prom.Histogram
	stageDuration     *prom.HistogramVec
	buildOutcomes     *prom.CounterVec
	pagesRendered     prom.Gauge
	livereloadClients prom.Gauge
}

// NewPrometheusRecorder constructs and registers metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "blogsmith",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogsmith",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		pagesRendered: prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogsmith",
			Name:      "pages_rendered",
			Help:      "Pages written by the most recent build",
		}),
		livereloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogsmith",
			Name:      "livereload_clients",
			Help:      "Currently connected live-reload clients",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.stageDuration, pr.buildOutcomes, pr.pagesRendered, pr.livereloadClients)
	return pr
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	pr.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncBuildOutcome(outcome string) {
	pr.buildOutcomes.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) SetPagesRendered(n int) {
	pr.pagesRendered.Set(float64(n))
}

func (pr *PrometheusRecorder) SetLiveReloadClients(n int) {
	pr.livereloadClients.Set(float64(n))
}
