// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace       = "elevator_sim"
	elevatorIDLabel = "elevator_id"
	eventTypeLabel  = "event_type"
)

var (
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    namespace + "_tick_duration_seconds",
			Help:    "Wall-clock duration of a single Step() tick pipeline pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	ticksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: namespace + "_ticks_total",
			Help: "Total simulation ticks advanced across all Step() calls",
		},
	)

	eventsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: namespace + "_events_total",
			Help: "Simulation events appended to the journal, by event type",
		},
		[]string{eventTypeLabel},
	)

	energyConsumed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: namespace + "_elevator_energy_consumed_total",
			Help: "Cumulative energy consumed by an elevator",
		},
		[]string{elevatorIDLabel},
	)

	passengersCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: namespace + "_passengers_completed_total",
			Help: "Passengers that reached COMPLETED status",
		},
	)

	passengersCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: namespace + "_passengers_cancelled_total",
			Help: "Passengers force-cancelled at max_duration_ticks",
		},
	)

	floorQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: namespace + "_floor_queue_depth",
			Help: "Waiting passengers at a floor, by direction",
		},
		[]string{"floor", "direction"},
	)

	breakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: namespace + "_circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open",
		},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    namespace + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests against the RPC surface",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	httpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: namespace + "_http_errors_total",
			Help: "HTTP-layer errors, by kind and originating component",
		},
		[]string{"kind", "component"},
	)

	processMemory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: namespace + "_process_memory_bytes",
			Help: "Process memory usage reported by runtime.MemStats",
		},
		[]string{"kind"},
	)

	avgResponseTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: namespace + "_avg_response_time_seconds",
			Help: "Most recent response time for a named request category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(
		tickDuration,
		ticksProcessed,
		eventsEmitted,
		energyConsumed,
		passengersCompleted,
		passengersCancelled,
		floorQueueDepth,
		breakerState,
		httpRequestDuration,
		httpErrors,
		processMemory,
		avgResponseTime,
	)
}

// ObserveTick records the wall-clock duration of one Step() tick pass and
// increments the processed-tick counter.
func ObserveTick(seconds float64) {
	tickDuration.Observe(seconds)
	ticksProcessed.Inc()
}

// RecordEvent increments the per-event-type counter for one journal append.
func RecordEvent(eventType string) {
	eventsEmitted.With(prometheus.Labels{eventTypeLabel: eventType}).Inc()
}

// SetEnergyConsumed reports one elevator's cumulative energy_consumed.
func SetEnergyConsumed(elevatorID string, value float64) {
	energyConsumed.With(prometheus.Labels{elevatorIDLabel: elevatorID}).Set(value)
}

// RecordPassengerCompleted increments the completed-passenger counter.
func RecordPassengerCompleted() {
	passengersCompleted.Inc()
}

// RecordPassengerCancelled increments the force-cancelled-passenger counter.
func RecordPassengerCancelled() {
	passengersCancelled.Inc()
}

// SetFloorQueueDepth reports the current up/down queue depth for a floor.
func SetFloorQueueDepth(floor, direction string, depth float64) {
	floorQueueDepth.With(prometheus.Labels{"floor": floor, "direction": direction}).Set(depth)
}

// SetBreakerState reports the engine circuit breaker's current state
// (0=closed, 1=open, 2=half_open).
func SetBreakerState(state int) {
	breakerState.Set(float64(state))
}

// RecordHTTPRequest observes one completed HTTP request against the RPC
// surface.
func RecordHTTPRequest(method, endpoint, status string, seconds float64) {
	httpRequestDuration.With(prometheus.Labels{"method": method, "endpoint": endpoint, "status": status}).Observe(seconds)
}

// IncError increments the HTTP-layer error counter for one kind/component
// pair (panics recovered, 4xx/5xx responses).
func IncError(kind, component string) {
	httpErrors.With(prometheus.Labels{"kind": kind, "component": component}).Inc()
}

// SetMemoryUsage reports one runtime.MemStats reading.
func SetMemoryUsage(kind string, bytes float64) {
	processMemory.With(prometheus.Labels{"kind": kind}).Set(bytes)
}

// SetAvgResponseTime reports the most recent response time for a request
// category (e.g. "step", "get_state", "health").
func SetAvgResponseTime(category string, seconds float64) {
	avgResponseTime.With(prometheus.Labels{"category": category}).Set(seconds)
}
