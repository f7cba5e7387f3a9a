// SPDX-License-Identifier: GPL-3.0-only

package metrics

import (
	"time"

	"courier/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery records the outcome of send attempts. A nil *Delivery is valid and
// records nothing.
type Delivery struct {
	initiated     prometheus.Counter
	resolved      *prometheus.CounterVec
	latency       prometheus.Histogram
	persistErrors prometheus.Counter
}

func NewDelivery(reg prometheus.Registerer) *Delivery {
	f := promauto.With(reg)
	return &Delivery{
		initiated: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_messages_initiated_total",
			Help: "Number of send attempts started.",
		}),
		resolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_messages_resolved_total",
			Help: "Number of send attempts resolved, by terminal status and failure kind.",
		}, []string{"status", "kind"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "courier_delivery_latency_seconds",
			Help:    "Time from initiating a send to its resolution.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		persistErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_persistence_write_failures_total",
			Help: "Number of failed best-effort snapshot writes.",
		}),
	}
}

// RegisterStatusGauges exposes the number of stored messages per status.
func RegisterStatusGauges(reg prometheus.Registerer, counts func() map[models.Status]int) {
	for _, status := range []models.Status{models.Pending, models.Sent, models.Failed} {
		status := status
		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "courier_messages",
				Help:        "Number of messages in the log by status.",
				ConstLabels: prometheus.Labels{"status": string(status)},
			},
			func() float64 { return float64(counts()[status]) },
		))
	}
}

func (d *Delivery) Initiated() {
	if d == nil {
		return
	}
	d.initiated.Inc()
}

func (d *Delivery) Resolved(status models.Status, kind string, took time.Duration) {
	if d == nil {
		return
	}
	d.resolved.WithLabelValues(string(status), kind).Inc()
	d.latency.Observe(took.Seconds())
}

func (d *Delivery) PersistFailed() {
	if d == nil {
		return
	}
	d.persistErrors.Inc()
}
