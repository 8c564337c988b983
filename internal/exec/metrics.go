package exec

import (
	"encoding/json"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Summary collects run totals. It is printed or exported at the end of a run.
type Summary struct {
	RunID   string    `json:"run_id"`
	Planner string    `json:"planner"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Done    bool      `json:"done"`

	Ticks            int    `json:"ticks"`
	Moves            int    `json:"moves"`
	Arrivals         int    `json:"arrivals"`
	Swaps            int    `json:"swaps"`
	Rotations        int    `json:"rotations"`
	Waits            int    `json:"waits"`
	Reassigned       int    `json:"reassigned"`
	ActuatorErrors   int    `json:"actuator_errors"`
	TelemetryDropped uint64 `json:"telemetry_dropped"`
}

// Export writes the summary to a JSON file.
func (s Summary) Export(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Metrics are the prometheus instruments of a scheduler.
type Metrics struct {
	ticks          prometheus.Counter
	moves          prometheus.Counter
	arrivals       prometheus.Counter
	events         *prometheus.CounterVec
	actuatorErrors prometheus.Counter
	dropped        prometheus.Counter
	moving         prometheus.Gauge
	atGoal         prometheus.Gauge
	tickDuration   prometheus.Histogram
}

// NewMetrics creates the instruments and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapfexec_ticks_total",
			Help: "Scheduler ticks run.",
		}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapfexec_moves_total",
			Help: "Move commands issued.",
		}),
		arrivals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapfexec_arrivals_total",
			Help: "Moving to settled transitions.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapfexec_planner_events_total",
			Help: "Planner decisions by kind.",
		}, []string{"kind"}),
		actuatorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapfexec_actuator_errors_total",
			Help: "Move commands the actuator rejected.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapfexec_telemetry_dropped_total",
			Help: "Position samples dropped on a full queue.",
		}),
		moving: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mapfexec_agents_moving",
			Help: "Agents in transit.",
		}),
		atGoal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mapfexec_agents_at_goal",
			Help: "Settled agents at their goal or plan end.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mapfexec_tick_duration_seconds",
			Help:    "Time spent inside one tick.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.moves, m.arrivals, m.events, m.actuatorErrors,
			m.dropped, m.moving, m.atGoal, m.tickDuration)
	}
	return m
}
