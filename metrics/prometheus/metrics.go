package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "callcore"

var (
	// callsActive is a gauge of calls currently in progress.
	callsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of currently active calls",
		},
	)

	// callsTotal is a counter of calls by terminal outcome.
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of calls handled",
		},
		[]string{"status"}, // status: success, failed
	)

	// callsRejectedTotal is a counter of admission rejections by reason.
	callsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_rejected_total",
			Help:      "Total number of calls rejected by admission control",
		},
		[]string{"reason"},
	)

	// callDuration is a histogram of total call duration.
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Histogram of total call duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)

	// turnsTotal is a counter of turn-pipeline runs by outcome.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of turn-pipeline runs",
		},
		[]string{"status"}, // status: success, failed
	)

	// audioBytesTotal is a counter of audio bytes moved through a call.
	audioBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Total audio bytes moved through calls",
		},
		[]string{"direction"}, // direction: received, emitted
	)

	// breakerStateChangesTotal is a counter of circuit breaker transitions.
	breakerStateChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_state_changes_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"client", "state"}, // state: open, closed
	)

	// poolConnectionsTotal is a gauge of connections in the pool.
	poolConnectionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_connections_total",
			Help:      "Total number of pooled connections",
		},
	)

	// poolConnectionsInUse is a gauge of connections currently checked out.
	poolConnectionsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_connections_in_use",
			Help:      "Number of pooled connections currently in use",
		},
	)

	// poolConnectionsHealthy is a gauge of Connected-state connections.
	poolConnectionsHealthy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_connections_healthy",
			Help:      "Number of pooled connections currently healthy",
		},
	)

	// poolConnectionsFailed is a gauge of Failed-state connections.
	poolConnectionsFailed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_connections_failed",
			Help:      "Number of pooled connections currently failed",
		},
	)

	// poolLatencySeconds is a gauge vec of pool latency aggregates.
	poolLatencySeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_latency_seconds",
			Help:      "Pool probe latency aggregates in seconds",
		},
		[]string{"aggregate"}, // aggregate: min, avg, max
	)

	// poolQualityScore is a gauge of the pool-wide quality score, in [0,1].
	poolQualityScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_quality_score",
			Help:      "Pool-wide connection quality score in [0,1]",
		},
	)

	// poolConnectionReconnectsTotal counts successful reconnects.
	poolConnectionReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_connection_reconnects_total",
			Help:      "Total number of successful pool connection reconnects",
		},
	)

	// roomsActive is a gauge of active rooms.
	roomsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of currently active rooms",
		},
	)

	// roomsCleanedTotal counts idle rooms removed by the health observer.
	roomsCleanedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_cleaned_total",
			Help:      "Total number of idle rooms cleaned up",
		},
	)

	// callsFatalTotal counts calls torn down after an unrecoverable
	// invariant violation, distinct from an ordinary failed-turn ending.
	callsFatalTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_fatal_total",
			Help:      "Total number of calls ended by an unrecoverable invariant violation",
		},
	)

	// allMetrics is the list of all collectors for registration.
	allMetrics = []prometheus.Collector{
		callsActive,
		callsTotal,
		callsRejectedTotal,
		callDuration,
		turnsTotal,
		audioBytesTotal,
		breakerStateChangesTotal,
		poolConnectionsTotal,
		poolConnectionsInUse,
		poolConnectionsHealthy,
		poolConnectionsFailed,
		poolLatencySeconds,
		poolQualityScore,
		poolConnectionReconnectsTotal,
		roomsActive,
		roomsCleanedTotal,
		callsFatalTotal,
	}
)

// RecordCallStarted marks a call as active.
func RecordCallStarted() {
	callsActive.Inc()
}

// RecordCallEnded records a call's terminal outcome and duration.
func RecordCallEnded(status string, durationSeconds float64) {
	callsActive.Dec()
	callsTotal.WithLabelValues(status).Inc()
	callDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordCallRejected records an admission-control rejection by reason.
func RecordCallRejected(reason string) {
	callsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordTurn records a turn-pipeline run's outcome.
func RecordTurn(status string) {
	turnsTotal.WithLabelValues(status).Inc()
}

// RecordAudioBytes records audio bytes moved in the given direction.
func RecordAudioBytes(direction string, n int) {
	if n > 0 {
		audioBytesTotal.WithLabelValues(direction).Add(float64(n))
	}
}

// RecordBreakerStateChange records a circuit breaker transition.
func RecordBreakerStateChange(client, state string) {
	breakerStateChangesTotal.WithLabelValues(client, state).Inc()
}

// RecordRoomCleaned records one idle room removed.
func RecordRoomCleaned() {
	roomsCleanedTotal.Inc()
}

// RecordCallFatal records a call ended by an unrecoverable invariant
// violation.
func RecordCallFatal() {
	callsFatalTotal.Inc()
}

// SetRoomsActive sets the current active room count.
func SetRoomsActive(n int) {
	roomsActive.Set(float64(n))
}

// PoolStatus is the set of pool-wide gauges published once per health
// observer iteration.
type PoolStatus struct {
	Total      int
	InUse      int
	Healthy    int
	Failed     int
	MinLatency float64
	AvgLatency float64
	MaxLatency float64
	Quality    float64
	Reconnects int
}

// SetPoolStatus publishes one pool-wide status snapshot.
func SetPoolStatus(s PoolStatus) {
	poolConnectionsTotal.Set(float64(s.Total))
	poolConnectionsInUse.Set(float64(s.InUse))
	poolConnectionsHealthy.Set(float64(s.Healthy))
	poolConnectionsFailed.Set(float64(s.Failed))
	poolLatencySeconds.WithLabelValues("min").Set(s.MinLatency)
	poolLatencySeconds.WithLabelValues("avg").Set(s.AvgLatency)
	poolLatencySeconds.WithLabelValues("max").Set(s.MaxLatency)
	poolQualityScore.Set(s.Quality)
	if s.Reconnects > 0 {
		poolConnectionReconnectsTotal.Add(float64(s.Reconnects))
	}
}
