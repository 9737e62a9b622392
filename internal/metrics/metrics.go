// Package metrics exports Prometheus metrics for flow activity.
// An Observer consumes adapter and coordinator events and translates
// them into counters and gauges; nothing here feeds back into routing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowdeck/flowdeck/internal/flow"
	"github.com/flowdeck/flowdeck/pkg/models"
)

// Metrics holds all flowdeck metric instruments.
type Metrics struct {
	registry *prometheus.Registry

	// Flow state
	FlowLoad      *prometheus.GaugeVec
	FlowAvailable *prometheus.GaugeVec

	// Event counters
	StatusChangesTotal   *prometheus.CounterVec
	ExecutionErrorsTotal *prometheus.CounterVec
	DelegationsTotal     *prometheus.CounterVec
	DecisionsTotal       prometheus.Counter
	EventsDropped        prometheus.Gauge
}

// New creates a metric set on its own registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		FlowLoad: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "flow_load",
				Help:      "Number of tasks in flight per flow",
			},
			[]string{"flow"},
		),
		FlowAvailable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "flow_available",
				Help:      "1 if the flow can accept tasks, 0 otherwise",
			},
			[]string{"flow"},
		),
		StatusChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_changes_total",
				Help:      "Total flow status transitions by target status",
			},
			[]string{"flow", "status"},
		),
		ExecutionErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "execution_errors_total",
				Help:      "Total backend execution errors per flow",
			},
			[]string{"flow"},
		),
		DelegationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delegations_total",
				Help:      "Total tasks delegated per flow",
			},
			[]string{"flow"},
		),
		DecisionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "coordination_decisions_total",
				Help:      "Total coordination decisions made",
			},
		),
		EventsDropped: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "events_dropped",
				Help:      "Events dropped by the emitter because no listener kept up",
			},
		),
	}
}

// Handler returns the Prometheus exposition handler for this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe applies one event to the metric set.
func (m *Metrics) Observe(ev flow.Event) {
	switch ev.Type {
	case flow.EventLoadChanged:
		m.FlowLoad.WithLabelValues(ev.Flow).Set(float64(ev.NewLoad))
	case flow.EventStatusChanged:
		m.StatusChangesTotal.WithLabelValues(ev.Flow, string(ev.NewStatus)).Inc()
		available := 0.0
		if ev.NewStatus == models.FlowStatusAvailable {
			available = 1.0
		}
		m.FlowAvailable.WithLabelValues(ev.Flow).Set(available)
	case flow.EventExecutionError:
		m.ExecutionErrorsTotal.WithLabelValues(ev.Flow).Inc()
	case flow.EventTaskDelegated:
		m.DelegationsTotal.WithLabelValues(ev.Flow).Inc()
	case flow.EventCoordinationDecision:
		m.DecisionsTotal.Inc()
	}
}

// Observer drains an emitter into a metric set.
type Observer struct {
	metrics *Metrics
	emitter *flow.Emitter
	done    chan struct{}
}

// NewObserver starts consuming events from the emitter.
func NewObserver(metrics *Metrics, emitter *flow.Emitter) *Observer {
	o := &Observer{
		metrics: metrics,
		emitter: emitter,
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *Observer) run() {
	for {
		select {
		case <-o.done:
			return
		case ev, ok := <-o.emitter.Events():
			if !ok {
				return
			}
			o.metrics.Observe(ev)
			o.metrics.EventsDropped.Set(float64(o.emitter.DroppedCount()))
		}
	}
}

// Close stops the observer. The emitter is not closed.
func (o *Observer) Close() {
	close(o.done)
}
