package main

import (
	"net/http"

	"github.com/angeloszaimis/workerproxy/internal/loadbalancer"
	"github.com/angeloszaimis/workerproxy/internal/metrics"
)

// setupRouter serves metrics on their own listener so that every path on the
// proxy port is forwarded to workers.
func setupRouter(metricsCollector *metrics.Collector, lb *loadbalancer.LoadBalancer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", metricsCollector.PrometheusHandler())
	mux.HandleFunc("/stats", metricsCollector.StatsHandler(func() string {
		return lb.Strategy().Name()
	}))

	return mux
}
