package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	ResourceStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "halo_resource_status",
			Help: "Current status code of each resource (worst-first ordering)",
		},
		[]string{"group", "resource"},
	)

	GroupStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "halo_group_status",
			Help: "Aggregate status code of each resource group",
		},
		[]string{"group"},
	)

	// Agent RPC metrics
	AgentOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halo_agent_operations_total",
			Help: "Total resource agent operations by operation and location",
		},
		[]string{"op", "location"},
	)

	AgentOperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halo_agent_operation_errors_total",
			Help: "Total resource agent operations that failed at the transport level",
		},
		[]string{"op"},
	)

	// Engine metrics
	TickDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "halo_engine_tick_duration_seconds",
			Help:    "Duration of one lifecycle engine tick per group",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	FailoversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "halo_failovers_total",
			Help: "Total failovers attempted to the away host",
		},
	)

	// Fencing metrics
	FenceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halo_fence_operations_total",
			Help: "Total fence operations by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(ResourceStatus)
	prometheus.MustRegister(GroupStatus)
	prometheus.MustRegister(AgentOperationsTotal)
	prometheus.MustRegister(AgentOperationErrors)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(FailoversTotal)
	prometheus.MustRegister(FenceOperationsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}
