package prometheus

import (
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wavepool/actorcpu/core/cpu"
	"github.com/wavepool/actorcpu/core/metrics"
)

// cpuMetrics implements cpu.CPUMetrics using Prometheus.
type cpuMetrics struct {
	turnDuration     prometheus.Histogram
	turnsTotal       *prometheus.CounterVec
	pollHitsTotal    *prometheus.CounterVec
	pollMissesTotal  prometheus.Counter
	stealsTotal      *prometheus.CounterVec
	parkedWorkers    prometheus.Gauge
	queueDepth       *prometheus.GaugeVec
	globalQueueDepth prometheus.Gauge
}

// NewCPUMetrics creates a new Prometheus implementation of cpu.CPUMetrics.
func NewCPUMetrics(reg prometheus.Registerer) cpu.CPUMetrics {
	m := &cpuMetrics{
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clstr_cpu_turn_duration_seconds",
			Help:    "Executor turn duration in seconds",
			Buckets: defaultBuckets,
		}),

		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clstr_cpu_turns_total",
			Help: "Total number of turns run, by outcome",
		}, []string{"success"}),

		pollHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clstr_cpu_poll_hits_total",
			Help: "Total number of successful dequeues, by source",
		}, []string{"source"}),

		pollMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clstr_cpu_poll_misses_total",
			Help: "Total number of full polls that found no work before parking",
		}),

		stealsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clstr_cpu_steal_attempts_total",
			Help: "Total number of steal attempts, by outcome",
		}, []string{"success"}),

		parkedWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clstr_cpu_parked_workers",
			Help: "Current number of parked workers",
		}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clstr_cpu_local_queue_depth",
			Help: "Local queue depth per worker",
		}, []string{"worker_id"}),

		globalQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clstr_cpu_global_queue_depth",
			Help: "Total global queue depth across all shards",
		}),
	}

	reg.MustRegister(
		m.turnDuration,
		m.turnsTotal,
		m.pollHitsTotal,
		m.pollMissesTotal,
		m.stealsTotal,
		m.parkedWorkers,
		m.queueDepth,
		m.globalQueueDepth,
	)

	return m
}

func (m *cpuMetrics) TurnDuration() metrics.Timer { return newTimer(m.turnDuration) }
func (m *cpuMetrics) TurnCompleted(success bool)  { m.turnsTotal.WithLabelValues(boolToStr(success)).Inc() }
func (m *cpuMetrics) PollHit(source string)       { m.pollHitsTotal.WithLabelValues(source).Inc() }
func (m *cpuMetrics) PollMiss()                   { m.pollMissesTotal.Inc() }

func (m *cpuMetrics) StealAttempt(success bool) {
	m.stealsTotal.WithLabelValues(boolToStr(success)).Inc()
}

func (m *cpuMetrics) ParkEnter(int) { m.parkedWorkers.Inc() }
func (m *cpuMetrics) ParkExit(int)  { m.parkedWorkers.Dec() }

func (m *cpuMetrics) QueueDepth(workerID int, depth int) {
	m.queueDepth.WithLabelValues(strconv.Itoa(workerID)).Set(float64(depth))
}

func (m *cpuMetrics) GlobalQueueDepth(depth int) { m.globalQueueDepth.Set(float64(depth)) }

var _ cpu.CPUMetrics = (*cpuMetrics)(nil)

// debugTracker implements cpu.DebugTracker by logging scope open/close at
// debug level. There is no ecosystem tracing dependency in this module's
// stack to bind to instead; see DESIGN.md.
type debugTracker struct {
	log *slog.Logger
}

// NewDebugTracker returns a cpu.DebugTracker that logs each turn's scope.
func NewDebugTracker(log *slog.Logger) cpu.DebugTracker {
	if log == nil {
		log = slog.Default()
	}
	return &debugTracker{log: log}
}

type debugScope struct {
	log  *slog.Logger
	name string
}

func (t *debugTracker) Start(name string) cpu.DebugScope {
	t.log.Debug("turn started", slog.String("handle", name))
	return &debugScope{log: t.log, name: name}
}

func (s *debugScope) Close() {
	s.log.Debug("turn finished", slog.String("handle", s.name))
}

var _ cpu.DebugTracker = (*debugTracker)(nil)
