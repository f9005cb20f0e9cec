package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/sla"
)

const namespace = "travel_workflow"

// Recorder exposes workflow activity as Prometheus collectors
type Recorder struct {
	events       *prometheus.CounterVec
	attention    *prometheus.GaugeVec
	breaches     prometheus.Counter
	scanDuration prometheus.Histogram
}

// NewRecorder registers the workflow collectors on reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed workflow transitions by event type and workflow type.",
		}, []string{"event", "workflow_type"}),

		attention: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sla_attention",
			Help:      "Open workflows not on track at the last SLA sweep, by SLA status.",
		}, []string{"status"}),

		breaches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_breach_reports_total",
			Help:      "Breached stages reported by SLA sweeps.",
		}),

		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sla_sweep_duration_seconds",
			Help:      "Time taken by one SLA sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Subscribe counts every event the dispatcher delivers
func (r *Recorder) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeAll("metrics", r.handle)
}

func (r *Recorder) handle(ctx context.Context, evt *event.Event) error {
	if evt.Type == event.TypeSLABreached {
		r.breaches.Inc()
		return nil
	}
	r.events.WithLabelValues(evt.Type.String(), evt.GetPayloadString(event.KeyType)).Inc()
	return nil
}

// ObserveSweep records the outcome of one SLA sweep
func (r *Recorder) ObserveSweep(took time.Duration, dueSoon, breached int) {
	r.scanDuration.Observe(took.Seconds())
	r.attention.WithLabelValues(string(sla.StatusDueSoon)).Set(float64(dueSoon))
	r.attention.WithLabelValues(string(sla.StatusBreached)).Set(float64(breached))
}
