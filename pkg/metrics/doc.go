/*
Package metrics provides Prometheus metrics collection and exposition for the
federated coordination substrate.

The metrics package defines and registers every metric using the Prometheus
client library, giving observability into scheduler registration churn,
rendezvous latency, stage barrier progress, and dataset throughput. Metrics
are exposed via an HTTP endpoint for scraping by Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Types                   │          │
	│  │                                              │          │
	│  │  Gauge: Instant values (cluster ready)      │          │
	│  │  Counter: Monotonic increases (reports)     │          │
	│  │  Histogram: Distributions (rendezvous wait) │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Scheduler: registrations, cluster readiness│          │
	│  │  Reporter: heartbeat outcomes               │          │
	│  │  Communicator: rendezvous wait/timeouts     │          │
	│  │  Stage: barrier updates, close duration     │          │
	│  │  Dataset: records read, queue depth         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Scheduler Metrics:

efls_workers_registered{status}:
  - Type: Gauge
  - Description: Number of registered workers by status

efls_registrations_total{outcome}:
  - Type: Counter
  - Description: Total RegisterNode calls by outcome (registered/restarted/version_mismatch/invalid_spec)

efls_version_bumps_total:
  - Type: Counter
  - Description: Total cluster generation version bumps

efls_cluster_ready:
  - Type: Gauge
  - Description: Whether the cluster has reached its required worker count (1 = ready)

Reporter Metrics:

efls_reports_total{outcome}:
  - Type: Counter
  - Description: Total reporter heartbeats by outcome

Communicator Metrics:

efls_rendezvous_wait_duration_seconds{family}:
  - Type: Histogram
  - Description: Time a rendezvous request waited for its matching response

efls_rendezvous_timeouts_total{family}:
  - Type: Counter
  - Description: Total rendezvous requests that fired their Monitor timeout

efls_tensors_sent_total / efls_tensors_received_total:
  - Type: Counter
  - Description: Total tensor envelopes exchanged

Stage Coordinator Metrics:

efls_stage_updates_total{status}:
  - Type: Counter
  - Description: Total StageUpdate calls by resulting status

efls_stage_barrier_duration_seconds{stage}:
  - Type: Histogram
  - Description: Time a stage index took to close (first enqueue to barrier satisfied)

Dataset Metrics:

efls_dataset_records_read_total:
  - Type: Counter
  - Description: Total records read from the resumable iterator

efls_work_queue_depth:
  - Type: Gauge
  - Description: Current depth of the work queue

# Usage

	import "github.com/efls-io/efls-go/pkg/metrics"

	metrics.RegistrationsTotal.WithLabelValues("registered").Inc()
	metrics.ClusterReady.Set(1)

	timer := metrics.NewTimer()
	// ... rendezvous wait ...
	timer.ObserveDurationVec(metrics.RendezvousWaitDuration, "tensor")

	http.Handle("/metrics", metrics.Handler())
	http.ListenAndServe(":9090", nil)

# Health and Readiness

This package also exposes process health/readiness endpoints independent of
the Prometheus registry: RegisterComponent/UpdateComponent track named
components ("scheduler", "communicator", ...), and HealthHandler,
ReadyHandler, LivenessHandler are the handlers both binaries mount at
/healthz, /readyz, /livez respectively. GetReadiness reports not_ready when
any critical component is missing or unhealthy; the critical set is
"scheduler" and "communicator" until SetCriticalComponents replaces it.

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration

Timer Pattern:
  - Create timer at operation start
  - Call ObserveDuration/ObserveDurationVec when the operation completes

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
