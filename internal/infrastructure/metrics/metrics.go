// Package metrics implementa el puerto cultivation.Metrics con colectores Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

var _ cultivation.Metrics = (*Recorder)(nil)

const namespace = "cultivo_lab"

// Recorder colectores de mutaciones del motor y del canal lateral.
type Recorder struct {
	mutations   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	sideChannel *prometheus.CounterVec
}

// NewRecorder crea los colectores y los registra en reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mutations_total",
			Help:      "Mutaciones del motor por operación y resultado.",
		}, []string{"op", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mutation_duration_seconds",
			Help:      "Duración de la transacción de cada mutación.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		sideChannel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "side_channel_failures_total",
			Help:      "Escrituras de bitácora (auditoría, desenlaces) que fallaron sin bloquear la mutación.",
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{r.mutations, r.duration, r.sideChannel} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveMutation cuenta la mutación con su resultado y registra su duración.
func (r *Recorder) ObserveMutation(op string, d time.Duration, err error) {
	r.mutations.WithLabelValues(op, result(err)).Inc()
	r.duration.WithLabelValues(op).Observe(d.Seconds())
}

// SideChannelFailure cuenta un fallo del canal lateral.
func (r *Recorder) SideChannelFailure(op string) {
	r.sideChannel.WithLabelValues(op).Inc()
}

// result etiqueta acotada para el error de una mutación.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence_error"
	case domain.IsAuthorization(err):
		return "unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}
