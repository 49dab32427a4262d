// Package metrics collects per-worker traffic statistics for the proxy.
//
// Request handlers emit MetricEvents on a buffered channel with non-blocking
// sends; a single collector goroutine folds them into an in-memory Metrics
// store (served as JSON on /stats) and into Prometheus collectors on a
// private registry (served on /metrics).
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Worker:     "http://127.0.0.1:9001",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("round-robin")
//
// On shutdown the collector drains events still queued in the channel.
package metrics
