package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MachineCommerce = "commerce"
	MachineViewer   = "viewer"
)

const (
	EffectReasonCanceled         = "canceled"
	EffectReasonDeadlineExceeded = "deadline_exceeded"
	EffectReasonRemoteRejection  = "remote_rejection"
	EffectReasonUnknown          = "unknown"
)

// MachineMetrics captures state machine health: transitions, rejected events,
// effect latency and live instances.
type MachineMetrics struct {
	transitions    *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	discarded      *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
	effectErrors   *prometheus.CounterVec
	instances      *prometheus.GaugeVec
}

var (
	machineMetricsOnce sync.Once
	machineMetrics     *MachineMetrics
)

// Machines returns the singleton machine metrics registered on the default registry.
func Machines(cfg Config) *MachineMetrics {
	machineMetricsOnce.Do(func() {
		machineMetrics = newMachineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return machineMetrics
}

func newMachineMetrics(registerer prometheus.Registerer, cfg Config) *MachineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "storefront"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &MachineMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "storefront_machine_transitions_total",
			Help:        "State machine transitions by machine, source and target state.",
			ConstLabels: constLabels,
		}, []string{"machine", "from", "to"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "storefront_machine_events_rejected_total",
			Help:        "Events dispatched to a state that does not accept them.",
			ConstLabels: constLabels,
		}, []string{"machine", "event"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "storefront_machine_stale_completions_total",
			Help:        "Invocation results discarded because the invoking state was left.",
			ConstLabels: constLabels,
		}, []string{"machine", "event"}),
		effectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "storefront_machine_effect_duration_seconds",
			Help:        "Latency of effects performed by the machine interpreters.",
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}, []string{"machine", "effect"}),
		effectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "storefront_machine_effect_errors_total",
			Help:        "Effect failures by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"machine", "effect", "reason"}),
		instances: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "storefront_machine_instances",
			Help:        "Live machine instances.",
			ConstLabels: constLabels,
		}, []string{"machine"}),
	}

	registerer.MustRegister(
		m.transitions,
		m.rejected,
		m.discarded,
		m.effectDuration,
		m.effectErrors,
		m.instances,
	)
	return m
}

func (m *MachineMetrics) RecordTransition(machine, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(machine, from, to).Inc()
}

func (m *MachineMetrics) RecordRejected(machine, event string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(machine, event).Inc()
}

func (m *MachineMetrics) RecordDiscarded(machine, event string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(machine, event).Inc()
}

func (m *MachineMetrics) ObserveEffect(machine, effect string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.effectDuration.WithLabelValues(machine, effect).Observe(took.Seconds())
	if err != nil {
		m.effectErrors.WithLabelValues(machine, effect, ClassifyEffectReason(err)).Inc()
	}
}

func (m *MachineMetrics) InstanceStarted(machine string) {
	if m == nil {
		return
	}
	m.instances.WithLabelValues(machine).Inc()
}

func (m *MachineMetrics) InstanceStopped(machine string) {
	if m == nil {
		return
	}
	m.instances.WithLabelValues(machine).Dec()
}

// remoteRejection is implemented by errors carrying an upstream HTTP status.
type remoteRejection interface {
	error
	HTTPStatus() int
}

func ClassifyEffectReason(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.Canceled):
		return EffectReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return EffectReasonDeadlineExceeded
	}
	var remote remoteRejection
	if errors.As(err, &remote) {
		return EffectReasonRemoteRejection
	}
	return EffectReasonUnknown
}
