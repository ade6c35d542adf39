package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediasort/internal/organizer"
)

const namespace = "mediasort"

// Recorder collects per-file and per-run metrics. It implements
// organizer.Observer; OnSettle calls are serialized by the scheduler.
type Recorder struct {
	registry *prometheus.Registry

	filesTotal       *prometheus.CounterVec
	quarantinedTotal *prometheus.CounterVec
	renamedTotal     prometheus.Counter
	fileDuration     *prometheus.HistogramVec
	discoveredFiles  prometheus.Gauge
	runDuration      prometheus.Gauge
	runLastTimestamp prometheus.Gauge
	runInterrupted       prometheus.Gauge
}

// NewRecorder registers the mediasort collectors in a new registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Files settled by outcome",
			},
			[]string{"outcome"},
		),
		quarantinedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quarantined_total",
				Help:      "Files moved to the unknown directory by reason",
			},
			[]string{"reason"},
		),
		renamedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collisions_total",
				Help:      "Files placed under a suffixed name because the original name was taken",
			},
		),
		fileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "file_duration_seconds",
				Help:      "Time to classify and place one file",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		discoveredFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "discovered_files",
				Help:      "Candidate files found in the input directory by the last run",
			},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run",
			},
		),
		runLastTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_last_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
		runInterrupted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_interrupted",
				Help:      "1 if the last run stopped before dispatching every file",
			},
		),
	}
	r.registry.MustRegister(
		r.filesTotal,
		r.quarantinedTotal,
		r.renamedTotal,
		r.fileDuration,
		r.discoveredFiles,
		r.runDuration,
		r.runLastTimestamp,
		r.runInterrupted,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SetDiscovered records the size of the file batch.
func (r *Recorder) SetDiscovered(n int) {
	r.discoveredFiles.Set(float64(n))
}

// OnDispatch implements organizer.Observer.
func (r *Recorder) OnDispatch(int, string) {}

// OnSettle implements organizer.Observer.
func (r *Recorder) OnSettle(_ int, outcome organizer.Outcome) {
	kind := string(outcome.Kind)
	r.filesTotal.WithLabelValues(kind).Inc()
	if outcome.Kind == organizer.OutcomeSkipped {
		return
	}
	r.fileDuration.WithLabelValues(kind).Observe(outcome.Duration.Seconds())
	if outcome.Kind == organizer.OutcomeQuarantined {
		r.quarantinedTotal.WithLabelValues(string(outcome.Reason)).Inc()
	}
	if outcome.Renamed {
		r.renamedTotal.Inc()
	}
}

// Finish records run-level gauges from the final summary.
func (r *Recorder) Finish(summary organizer.Summary, finishedAt time.Time) {
	r.runDuration.Set(summary.Duration.Seconds())
	r.runLastTimestamp.Set(float64(finishedAt.Unix()))
	if summary.Aborted || summary.Canceled {
		r.runInterrupted.Set(1)
	} else {
		r.runInterrupted.Set(0)
	}
}

// WriteTextfile atomically writes the registry in the Prometheus text format
// to path, creating its directory.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
