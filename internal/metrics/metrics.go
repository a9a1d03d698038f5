package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/local/pdfbinder/internal/bundle"
)

const namespace = "pdfbinder"

// Recorder collects run metrics on a private registry. A CLI run has no
// scrape endpoint, so results are written to a textfile or pushed.
type Recorder struct {
	reg *prometheus.Registry

	documents   *prometheus.CounterVec
	pages       *prometheus.CounterVec
	conversions *prometheus.CounterVec
	convLatency *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	tocPages    prometheus.Gauge
	tocIters    prometheus.Gauge
	totalPages  prometheus.Gauge
	lastRun     prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Source documents by outcome (converted, skipped, placeholder, failed)",
		}, []string{"outcome"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_pages_total",
			Help:      "Content pages bound into bundles by outcome",
		}, []string{"outcome"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Document adapter calls by kind and result",
		}, []string{"kind", "result"}),
		convLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of document adapter calls by kind",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		}, []string{"kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Bundle runs by result",
		}, []string{"result"}),
		tocPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "toc_pages",
			Help:      "TOC pages of the last bundle",
		}),
		tocIters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "toc_iterations",
			Help:      "Planning passes needed for the TOC length to settle",
		}),
		totalPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bundle_pages",
			Help:      "Total pages of the last bundle",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	r.reg.MustRegister(r.documents, r.pages, r.conversions, r.convLatency, r.runs,
		r.tocPages, r.tocIters, r.totalPages, r.lastRun)
	return r
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveDocument implements bundle.Metrics.
func (r *Recorder) ObserveDocument(outcome string, pages int) {
	r.documents.WithLabelValues(outcome).Inc()
	if pages > 0 {
		r.pages.WithLabelValues(outcome).Add(float64(pages))
	}
}

// ObserveConversion implements bundle.Metrics.
func (r *Recorder) ObserveConversion(kind bundle.Kind, took time.Duration, err error) {
	r.conversions.WithLabelValues(kind.String(), result(err)).Inc()
	r.convLatency.WithLabelValues(kind.String()).Observe(took.Seconds())
}

// ObserveRun implements bundle.Metrics.
func (r *Recorder) ObserveRun(rep *bundle.Report, err error) {
	r.runs.WithLabelValues(result(err)).Inc()
	if rep == nil {
		return
	}
	if err == nil {
		r.tocPages.Set(float64(rep.TOCPages))
		r.tocIters.Set(float64(rep.Iterations))
		r.totalPages.Set(float64(rep.TotalPages))
	}
	if !rep.Finished.IsZero() {
		r.lastRun.Set(float64(rep.Finished.Unix()))
	}
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Push sends all metrics to a Prometheus Pushgateway, grouped by run id.
func (r *Recorder) Push(url, job, runID string) error {
	p := push.New(url, job).Gatherer(r.reg)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
