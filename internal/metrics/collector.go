package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angeloszaimis/workerproxy/internal/worker"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventWorkerSelected    EventType = "worker_selected"
	EventResponseCompleted EventType = "response_completed"
	EventForwardFailed     EventType = "forward_failed"
	EventStatusChanged     EventType = "status_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Worker     string
	Duration   time.Duration
	StatusCode int
	ErrorKind  string
	Status     worker.Status
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	prom    *promMetrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		prom:    newPromMetrics(),
		logger:  logger,
	}
}

// Emit queues an event without blocking. Events are dropped when the buffer
// is full. A nil Collector ignores every event.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", "type", event.Type, "worker", event.Worker)
	}
}

// TrackWorkers exposes the active connection count of each worker as a gauge
// and seeds its status.
func (c *Collector) TrackWorkers(workers []*worker.Worker) error {
	for _, w := range workers {
		c.metrics.UpdateStatus(w.Address(), w.Status().String())
	}
	return c.prom.trackWorkers(workers)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.prom.registry
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	key := workerKey(event.Worker)

	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Worker)
		c.prom.requests.WithLabelValues(key).Inc()

	case EventWorkerSelected:
		c.metrics.RecordSelection(event.Worker)
		c.prom.selections.WithLabelValues(key).Inc()

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Worker, event.Duration, event.StatusCode)
		c.prom.duration.WithLabelValues(key).Observe(event.Duration.Seconds())

	case EventForwardFailed:
		c.metrics.RecordFailure(event.Worker, event.ErrorKind)
		c.prom.failures.WithLabelValues(key, event.ErrorKind).Inc()

	case EventStatusChanged:
		c.metrics.UpdateStatus(event.Worker, event.Status.String())
		c.prom.status.WithLabelValues(key).Set(float64(event.Status))

	default:
		c.logger.Warn("Unknown metric event", "type", event.Type)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}
