// Package metrics provides Prometheus metrics for the SART task engine.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// defaultReactionTimeBuckets covers human simple reaction times in milliseconds.
func defaultReactionTimeBuckets() []float64 {
	return []float64{100, 150, 200, 250, 300, 350, 400, 500, 600, 800, 1000, 1500}
}

// Manager manages all Prometheus metrics for the SART engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rtBuckets        []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Task metrics
	runsStarted      prometheus.Counter
	runsCompleted    *prometheus.CounterVec
	trialsPresented  prometheus.Counter
	trialOutcomes    *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	responses        *prometheus.CounterVec
	responsesDropped *prometheus.CounterVec
	reactionTime     prometheus.Histogram
	staleDeadlines   prometheus.Counter
	activeRun        prometheus.Gauge
	deadlineLateness prometheus.Histogram

	// Queue metrics
	queueCapacity      prometheus.Gauge
	queueSize          prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sart",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		rtBuckets:        defaultReactionTimeBuckets(),
		enabled:          true,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.runsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("runs_started_total"),
		Help:        "Total number of runs started",
		ConstLabels: labels,
	})

	m.runsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("runs_completed_total"),
		Help:        "Total number of runs that ended, by status (completed, aborted)",
		ConstLabels: labels,
	}, []string{"status"})

	m.trialsPresented = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("trials_presented_total"),
		Help:        "Total number of stimuli shown",
		ConstLabels: labels,
	})

	m.trialOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("trial_outcomes_total"),
		Help:        "Finalized trials by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.phaseTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("phase_transitions_total"),
		Help:        "Phase transitions by source and destination phase",
		ConstLabels: labels,
	}, []string{"from", "to"})

	m.responses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("responses_attributed_total"),
		Help:        "Responses attributed to a trial, by attribution window (stimulus, isi)",
		ConstLabels: labels,
	}, []string{"window"})

	m.responsesDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("responses_discarded_total"),
		Help:        "Responses discarded by the arbiter, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.reactionTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("reaction_time_milliseconds"),
		Help:        "Reaction time of attributed responses in milliseconds",
		Buckets:     m.rtBuckets,
		ConstLabels: labels,
	})

	m.staleDeadlines = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stale_deadlines_total"),
		Help:        "Deadline expiries delivered after their handle was disarmed",
		ConstLabels: labels,
	})

	m.activeRun = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("active_run"),
		Help:        "1 while a run is active, 0 otherwise",
		ConstLabels: labels,
	})

	m.deadlineLateness = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("deadline_lateness_milliseconds"),
		Help:        "Delay between a deadline's due time and the moment the engine applied it",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_capacity"),
		Help:        "Maximum event queue capacity",
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Current number of queued engine events",
		ConstLabels: labels,
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueue_total"),
		Help:        "Total number of engine events enqueued",
		ConstLabels: labels,
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_dequeue_total"),
		Help:        "Total number of engine events dequeued",
		ConstLabels: labels,
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueue_errors_total"),
		Help:        "Total number of rejected enqueues",
		ConstLabels: labels,
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_processing_latency_milliseconds"),
		Help:        "Time spent applying one engine event in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_errors_total"),
		Help:        "Total number of events the worker handler rejected",
		ConstLabels: labels,
	})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_component_total"),
		Help:        "Errors by component and error type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})
}

// RecordRunStarted increments the runs started counter and marks a run active.
func RecordRunStarted() {
	if !globalManager.enabled {
		return
	}
	globalManager.runsStarted.Inc()
	globalManager.activeRun.Set(1)
}

// RecordRunEnded records a finished run with status "completed" or "aborted".
func RecordRunEnded(status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.runsCompleted.WithLabelValues(status).Inc()
	globalManager.activeRun.Set(0)
}

// RecordTrialPresented increments the stimuli shown counter.
func RecordTrialPresented() {
	if !globalManager.enabled {
		return
	}
	globalManager.trialsPresented.Inc()
}

// RecordTrialOutcome counts a finalized trial.
func RecordTrialOutcome(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.trialOutcomes.WithLabelValues(outcome).Inc()
}

// RecordPhaseTransition counts a phase change.
func RecordPhaseTransition(from, to string) {
	if !globalManager.enabled {
		return
	}
	globalManager.phaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordResponseAttributed counts an attributed response and observes its reaction time.
func RecordResponseAttributed(window string, reactionTimeMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.responses.WithLabelValues(window).Inc()
	globalManager.reactionTime.Observe(reactionTimeMs)
}

// RecordResponseDiscarded counts a response the arbiter ignored.
func RecordResponseDiscarded(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.responsesDropped.WithLabelValues(reason).Inc()
}

// RecordStaleDeadline counts a deadline delivered after it was disarmed.
func RecordStaleDeadline() {
	if !globalManager.enabled {
		return
	}
	globalManager.staleDeadlines.Inc()
}

// RecordDeadlineLateness observes how late a deadline was applied.
func RecordDeadlineLateness(latenessMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.deadlineLateness.Observe(latenessMs)
}

// Queue Metrics Functions.

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// RecordWorkerProcessingLatency records how long one event took to apply.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// SetEnabled toggles recording of task metrics on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteText writes every metric family gathered from g in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("%w: gather: %w", ErrObserveFailed, err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("%w: encode %s: %w", ErrObserveFailed, mf.GetName(), err)
		}
	}
	return nil
}
