package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/angeloszaimis/workerproxy/internal/worker"
)

const namespace = "workerproxy"

type promMetrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	selections *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	status     *prometheus.GaugeVec
}

func newPromMetrics() *promMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &promMetrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Inbound requests by the worker they were routed to",
		}, []string{"worker"}),
		selections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Worker selections made by the active strategy",
		}, []string{"worker"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_failures_total",
			Help:      "Requests that could not be forwarded, by error kind",
		}, []string{"worker", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from worker selection until the relayed response completed",
			Buckets:   prometheus.DefBuckets,
		}, []string{"worker"}),
		status: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_status",
			Help:      "Current worker status (0=pending 1=starting 2=up 3=down 4=failed 5=unknown)",
		}, []string{"worker"}),
	}
}

// trackWorkers registers an active-connections gauge for each worker.
func (p *promMetrics) trackWorkers(workers []*worker.Worker) error {
	for _, w := range workers {
		w := w
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "active_connections",
			Help:        "In-flight requests routed to the worker",
			ConstLabels: prometheus.Labels{"worker": w.Address()},
		}, func() float64 {
			return float64(w.ActiveConnections())
		})

		if err := p.registry.Register(gauge); err != nil {
			return err
		}

		p.status.WithLabelValues(w.Address()).Set(float64(w.Status()))
	}

	return nil
}
