// Package metrics exports engine activity as Prometheus series.
package metrics

import (
	"fmt"
	"strconv"

	prefs "github.com/goliatone/go-prefs"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prefs"

// Collector records mutations, undo availability and profile deliveries.
// It satisfies prefs.Observer so it can be passed to prefs.WithObserver.
type Collector struct {
	mutations     *prometheus.CounterVec
	undoAvailable prometheus.Gauge
	deliveries    *prometheus.CounterVec
	applied       prometheus.Histogram
}

// NewCollector registers the collector's series with reg. A nil reg uses
// the default registerer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Setting mutations by origin.",
		}, []string{"origin"}),
		undoAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "undo_available",
			Help:      "1 when the undo stack holds at least one entry.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_deliveries_total",
			Help:      "Profile deliveries by whether the identity changed.",
		}, []string{"identity_changed"}),
		applied: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_applied_settings",
			Help:      "Settings changed by one profile delivery.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}
	for _, collector := range []prometheus.Collector{c.mutations, c.undoAvailable, c.deliveries, c.applied} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return c, nil
}

// OnMutation counts m under its origin label.
func (c *Collector) OnMutation(m prefs.Mutation) {
	c.mutations.WithLabelValues(m.Origin.String()).Inc()
}

// SetUndoAvailable mirrors the undo availability signal.
func (c *Collector) SetUndoAvailable(available bool) {
	if available {
		c.undoAvailable.Set(1)
		return
	}
	c.undoAvailable.Set(0)
}

// ObserveReconcile records one profile delivery.
func (c *Collector) ObserveReconcile(report prefs.ReconcileReport) {
	c.deliveries.WithLabelValues(strconv.FormatBool(report.IdentityChanged)).Inc()
	c.applied.Observe(float64(report.Applied))
}
