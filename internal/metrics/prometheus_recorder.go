package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry       *prom.Registry
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	stageResults   *prom.CounterVec
	buildOutcome   *prom.CounterVec
	assetsWritten  *prom.CounterVec
	manifestMisses prom.Counter
	publishResults *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the build metrics on reg.
// A nil registry gets a fresh one, available through Registry().
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "sitebuilder",
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual build stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "sitebuilder",
		Name:      "build_duration_seconds",
		Help:      "Total build duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "sitebuilder",
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "sitebuilder",
		Name:      "build_outcomes_total",
		Help:      "Build outcomes by final status",
	}, []string{"outcome"})
	pr.assetsWritten = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "sitebuilder",
		Name:      "assets_written_total",
		Help:      "Content-hashed files written by kind",
	}, []string{"kind"})
	pr.manifestMisses = prom.NewCounter(prom.CounterOpts{
		Namespace: "sitebuilder",
		Name:      "manifest_misses_total",
		Help:      "Hash manifest lookups that fell back to the logical path",
	})
	pr.publishResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "sitebuilder",
		Name:      "publish_results_total",
		Help:      "Atomic publish results",
	}, []string{"result"})
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.assetsWritten, pr.manifestMisses, pr.publishResults)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddAssetsWritten(kind string, n int) {
	if n <= 0 {
		return
	}
	p.assetsWritten.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) IncManifestMiss() { p.manifestMisses.Inc() }

func (p *PrometheusRecorder) IncPublishResult(result PublishLabel) {
	p.publishResults.WithLabelValues(string(result)).Inc()
}

// WriteTextfile writes the current metric values in the node_exporter textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}
