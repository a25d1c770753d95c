// Package metrics exports blocking pool events as Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jzx17/offload/pkg/types"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// Exporter adapts types.Metrics to Prometheus collectors.
type Exporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskOutcomeTotal    *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	threads             *prom.GaugeVec
	queueDepth          *prom.GaugeVec
}

var _ types.Metrics = (*Exporter)(nil)

// NewExporter creates and registers the collectors. A nil registerer uses the default one.
// Creating a second exporter on the same registry reuses the collectors of the first.
func NewExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = "offload"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Blocking target execution time in seconds.",
		Buckets:   buckets,
	}, []string{"pool", "outcome"})
	outcomeVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_total",
		Help:      "Finished work items by outcome.",
	}, []string{"pool", "outcome"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Submissions rejected by the pool.",
	}, []string{"pool", "reason"})
	threadsVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "threads",
		Help:      "Live worker threads.",
	}, []string{"pool"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Work items waiting for a worker.",
	}, []string{"pool"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if outcomeVec, err = registerCollector(reg, outcomeVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if threadsVec, err = registerCollector(reg, threadsVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &Exporter{
		taskDurationSeconds: durationVec,
		taskOutcomeTotal:    outcomeVec,
		taskRejectedTotal:   rejectedVec,
		threads:             threadsVec,
		queueDepth:          queueDepthVec,
	}, nil
}

// RecordTaskDuration observes the run time and counts the outcome.
func (e *Exporter) RecordTaskDuration(pool string, outcome types.Outcome, d time.Duration) {
	if e == nil {
		return
	}
	pool = normalizeLabel(pool, "unknown")
	label := normalizeLabel(string(outcome), "unknown")
	e.taskDurationSeconds.WithLabelValues(pool, label).Observe(d.Seconds())
	e.taskOutcomeTotal.WithLabelValues(pool, label).Inc()
}

func (e *Exporter) RecordTaskRejected(pool string, reason string) {
	if e == nil {
		return
	}
	e.taskRejectedTotal.WithLabelValues(normalizeLabel(pool, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

func (e *Exporter) RecordThreads(pool string, live int) {
	if e == nil {
		return
	}
	e.threads.WithLabelValues(normalizeLabel(pool, "unknown")).Set(float64(live))
}

func (e *Exporter) RecordQueueDepth(pool string, depth int) {
	if e == nil {
		return
	}
	e.queueDepth.WithLabelValues(normalizeLabel(pool, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegistered prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
