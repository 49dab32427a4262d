package handler

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/angeloszaimis/workerproxy/internal/loadbalancer"
	"github.com/angeloszaimis/workerproxy/internal/metrics"
)

type LoadBalancerHandler struct {
	logger           *slog.Logger
	balancer         *loadbalancer.LoadBalancer
	metricsCollector *metrics.Collector
}

func (lb *LoadBalancerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lb.logger.Info("Received request",
		slog.String("from", clientIP(r)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host))

	start := time.Now()

	resp, err := lb.balancer.Forward(r)
	if err != nil {
		lb.fail(w, r, err)
		return
	}
	defer resp.Body.Close()

	var workerAddr string
	if chosen := loadbalancer.WorkerFromResponse(resp); chosen != nil {
		workerAddr = chosen.Address()
		lb.emit(metrics.MetricEvent{Type: metrics.EventWorkerSelected, Worker: workerAddr})
	}
	lb.emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Worker: workerAddr})

	if workerAddr == "" {
		lb.emit(metrics.MetricEvent{
			Type:      metrics.EventForwardFailed,
			ErrorKind: loadbalancer.ErrorKind(loadbalancer.ErrNoWorkersAvailable),
		})
	}

	header := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		lb.logger.Warn("Relaying response body failed",
			slog.String("worker", workerAddr),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
	}

	lb.emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Worker:     workerAddr,
		Duration:   time.Since(start),
		StatusCode: resp.StatusCode,
	})
}

func (lb *LoadBalancerHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := loadbalancer.ErrorKind(err)
	workerAddr := failedWorker(err)

	lb.logger.Error("Forwarding request failed",
		slog.String("worker", workerAddr),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("kind", kind),
		slog.Any("err", err))

	if workerAddr != "" {
		lb.emit(metrics.MetricEvent{Type: metrics.EventWorkerSelected, Worker: workerAddr})
	}
	lb.emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Worker: workerAddr})
	lb.emit(metrics.MetricEvent{Type: metrics.EventForwardFailed, Worker: workerAddr, ErrorKind: kind})

	w.Header().Set(loadbalancer.MarkerHeader, loadbalancer.ProxyName)
	http.Error(w, failureMessage(kind), http.StatusServiceUnavailable)
}

// failureMessage is what the client sees. The underlying error stays in the logs.
func failureMessage(kind string) string {
	switch kind {
	case "connect":
		return "upstream worker unreachable"
	case "protocol":
		return "upstream protocol error"
	case "invalid_uri":
		return "invalid upstream address"
	default:
		return "request could not be forwarded"
	}
}

func failedWorker(err error) string {
	var (
		connectErr  *loadbalancer.UpstreamConnectError
		protocolErr *loadbalancer.UpstreamProtocolError
	)

	switch {
	case errors.As(err, &connectErr):
		return connectErr.Worker
	case errors.As(err, &protocolErr):
		return protocolErr.Worker
	default:
		return ""
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (lb *LoadBalancerHandler) emit(event metrics.MetricEvent) {
	if lb.metricsCollector == nil {
		return
	}
	lb.metricsCollector.Emit(event)
}

func NewLoadBalancerHandler(logger *slog.Logger, lb *loadbalancer.LoadBalancer, collector *metrics.Collector) *LoadBalancerHandler {
	return &LoadBalancerHandler{
		logger:           logger,
		balancer:         lb,
		metricsCollector: collector,
	}
}
