package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Delivery pipeline metrics
	MessagesCreated    *prometheus.CounterVec
	JobsExecuted       *prometheus.CounterVec
	JobExecutionTime   prometheus.Histogram
	TransportSends     *prometheus.CounterVec
	SchedulerRequests  *prometheus.CounterVec
	EventLogWrites     *prometheus.CounterVec
	ReconcilerSweeps   prometheus.Counter
	StaleJobsRecovered prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		MessagesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_created_total",
			Help:      "Total number of messages persisted, by mode (direct/template)",
		}, []string{"mode"}),
		JobsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_executed_total",
			Help:      "Total number of job callback executions, by outcome",
		}, []string{"outcome"}),
		JobExecutionTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "job_execution_duration_seconds",
			Help:      "Time spent executing scheduled jobs",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		TransportSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transport_sends_total",
			Help:      "Per-transport delivery attempts, by transport and outcome",
		}, []string{"transport", "outcome"}),
		SchedulerRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "scheduler_requests_total",
			Help:      "Outbound scheduler registration calls, by result",
		}, []string{"result"}),
		EventLogWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "event_log_writes_total",
			Help:      "Event log batch inserts, by result",
		}, []string{"result"}),
		ReconcilerSweeps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reconciler_sweeps_total",
			Help:      "Total number of stale-job reconciler sweeps",
		}),
		StaleJobsRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stale_jobs_recovered_total",
			Help:      "Jobs stuck in working that the reconciler marked failed",
		}),
	}
}
