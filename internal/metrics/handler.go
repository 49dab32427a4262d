package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsHandler serves the JSON snapshot. strategy is called per request so
// that a hot-reloaded strategy shows up immediately.
func (c *Collector) StatsHandler(strategy func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot(strategy())

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func (c *Collector) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(c.prom.registry, promhttp.HandlerOpts{
		ErrorLog: promLogger{c},
	})
}

type promLogger struct {
	c *Collector
}

func (l promLogger) Println(v ...any) {
	l.c.logger.Error("Prometheus handler error", "details", v)
}
