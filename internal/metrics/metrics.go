// Package metrics exposes Prometheus metrics for the broker and server
// processes: tick timing, anima dimensions, calibration drift, sensor
// availability, and subsystem health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Broker tick ────────────────────────────────────────────────────────────

// TickDuration tracks the broker's per-tick wall time.
var TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "anima",
	Name:      "tick_duration_seconds",
	Help:      "Broker tick duration in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3},
})

// TickBackpressureSkips tracks ticks where draw/LED work was skipped
// because the tick overran the 1.5s backpressure threshold.
var TickBackpressureSkips = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "anima",
	Name:      "tick_backpressure_skips_total",
	Help:      "Ticks where non-essential work was skipped due to overrun.",
})

// ─── Anima ──────────────────────────────────────────────────────────────────

// AnimaDimension tracks the current value of each anima scalar.
var AnimaDimension = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "self_state",
	Help:      "Current anima self-state value per dimension.",
}, []string{"dimension"})

// AnimaRawDimension tracks the pre-drift raw anima value.
var AnimaRawDimension = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "self_state_raw",
	Help:      "Pre-drift anima value per dimension.",
}, []string{"dimension"})

// ─── Calibration drift ──────────────────────────────────────────────────────

// DriftOffset tracks the current calibration midpoint offset per dimension.
var DriftOffset = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "calibration_drift_offset",
	Help:      "Current calibration midpoint offset per dimension.",
}, []string{"dimension"})

// DriftSurpriseEvents tracks surprise-acceleration triggers.
var DriftSurpriseEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "anima",
	Name:      "calibration_surprise_events_total",
	Help:      "Total surprise-acceleration triggers per dimension.",
}, []string{"dimension"})

// ─── Sensors ────────────────────────────────────────────────────────────────

// SensorAvailable tracks per-sensor availability (1=available, 0=not).
var SensorAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "sensor_available",
	Help:      "Sensor availability (1=available, 0=not).",
}, []string{"sensor"})

// SensorReadErrors tracks sensor read failures by sensor name.
var SensorReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "anima",
	Name:      "sensor_read_errors_total",
	Help:      "Total sensor read errors by sensor name.",
}, []string{"sensor"})

// ─── Tension / agency ───────────────────────────────────────────────────────

// ConflictEvents tracks detected value-tension events by category.
var ConflictEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "anima",
	Name:      "conflict_events_total",
	Help:      "Total value-tension conflict events by category.",
}, []string{"category"})

// ActionValue tracks the current TD value estimate per action.
var ActionValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "action_value",
	Help:      "Current TD action-value estimate.",
}, []string{"action"})

// ─── Drawing ────────────────────────────────────────────────────────────────

// DrawingsSaved tracks completed drawings by era.
var DrawingsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "anima",
	Name:      "drawings_saved_total",
	Help:      "Total drawings saved by era.",
}, []string{"era"})

// CanvasCoherence tracks the most recent coherence score.
var CanvasCoherence = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "canvas_coherence",
	Help:      "Most recent drawing canvas coherence score.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// SubsystemHealth tracks per-subsystem health status (1=ok, 0=not ok).
var SubsystemHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "subsystem_health",
	Help:      "Subsystem health status (1=ok, 0=stale/degraded/missing).",
}, []string{"subsystem"})

// ─── Identity ───────────────────────────────────────────────────────────────

// Awakenings tracks the lifetime awakening count.
var Awakenings = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "awakenings_total",
	Help:      "Lifetime awakening count.",
})

// SharedMemoryStale tracks whether the server's last shared-memory read
// was fresh (0) or stale (1).
var SharedMemoryStale = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "anima",
	Name:      "shared_memory_stale",
	Help:      "1 if the last shared-memory read was stale, 0 otherwise.",
})
