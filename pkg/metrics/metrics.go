package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scheduler metrics
	WorkersRegistered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "efls_workers_registered",
			Help: "Number of registered workers by status",
		},
		[]string{"status"},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efls_registrations_total",
			Help: "Total RegisterNode calls by outcome",
		},
		[]string{"outcome"},
	)

	VersionBumpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "efls_version_bumps_total",
			Help: "Total number of cluster generation version bumps",
		},
	)

	ClusterReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "efls_cluster_ready",
			Help: "Whether the cluster has reached its required worker count (1 = ready)",
		},
	)

	// Reporter metrics
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efls_reports_total",
			Help: "Total reporter heartbeats by outcome",
		},
		[]string{"outcome"},
	)

	// Communicator metrics
	RendezvousWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "efls_rendezvous_wait_duration_seconds",
			Help:    "Time a rendezvous request waited for its matching response",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"family"},
	)

	RendezvousTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efls_rendezvous_timeouts_total",
			Help: "Total rendezvous requests that fired their Monitor timeout",
		},
		[]string{"family"},
	)

	TensorsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "efls_tensors_sent_total",
			Help: "Total tensor envelopes sent",
		},
	)

	TensorsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "efls_tensors_received_total",
			Help: "Total tensor envelopes received",
		},
	)

	// Stage coordinator metrics
	StageUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "efls_stage_updates_total",
			Help: "Total StageUpdate calls by resulting status",
		},
		[]string{"status"},
	)

	StageBarrierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "efls_stage_barrier_duration_seconds",
			Help:    "Time a stage index took to close (first enqueue to barrier satisfied)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Dataset metrics
	RecordsRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "efls_dataset_records_read_total",
			Help: "Total records read from the resumable iterator",
		},
	)

	WorkQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "efls_work_queue_depth",
			Help: "Current depth of the work queue",
		},
	)
)

func init() {
	prometheus.MustRegister(WorkersRegistered)
	prometheus.MustRegister(RegistrationsTotal)
	prometheus.MustRegister(VersionBumpsTotal)
	prometheus.MustRegister(ClusterReady)
	prometheus.MustRegister(ReportsTotal)
	prometheus.MustRegister(RendezvousWaitDuration)
	prometheus.MustRegister(RendezvousTimeoutsTotal)
	prometheus.MustRegister(TensorsSent)
	prometheus.MustRegister(TensorsReceived)
	prometheus.MustRegister(StageUpdatesTotal)
	prometheus.MustRegister(StageBarrierDuration)
	prometheus.MustRegister(RecordsRead)
	prometheus.MustRegister(WorkQueueDepth)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
