package loadbalancer

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/workerproxy/internal/strategy"
	"github.com/angeloszaimis/workerproxy/internal/worker"
)

const (
	ProxyName    = "workerproxy"
	MarkerHeader = "X-Proxied-From"
)

// Dialer opens upstream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// StatusObserver is notified whenever a worker changes status.
type StatusObserver func(w *worker.Worker, status worker.Status)

type Option func(*LoadBalancer)

func WithLogger(logger *slog.Logger) Option {
	return func(lb *LoadBalancer) {
		if logger != nil {
			lb.logger = logger
		}
	}
}

func WithDialer(dialer Dialer) Option {
	return func(lb *LoadBalancer) {
		if dialer != nil {
			lb.dialer = dialer
		}
	}
}

// WithUpstreamTimeout bounds the dial and the whole exchange with a worker.
// Zero, the default, leaves upstream calls unbounded.
func WithUpstreamTimeout(timeout time.Duration) Option {
	return func(lb *LoadBalancer) {
		if timeout > 0 {
			lb.timeout = timeout
		}
	}
}

func WithStatusObserver(observer StatusObserver) Option {
	return func(lb *LoadBalancer) {
		lb.observer = observer
	}
}

// LoadBalancer forwards inbound requests to workers picked by its selector.
// It is safe for concurrent use; the registry is read-only and the selector
// serializes cursor updates.
type LoadBalancer struct {
	workers  *worker.Registry
	selector *Selector
	dialer   Dialer
	timeout  time.Duration
	logger   *slog.Logger
	observer StatusObserver
}

func NewLoadBalancer(workers *worker.Registry, strat strategy.Strategy, opts ...Option) *LoadBalancer {
	lb := &LoadBalancer{
		workers:  workers,
		selector: NewSelector(strat),
		dialer:   &net.Dialer{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(lb)
	}

	return lb
}

// Forward selects a worker and performs one HTTP/1.1 exchange with it over a
// new connection. With no workers it returns a synthesized 503 response
// without touching the network. The caller must close the response body.
func (lb *LoadBalancer) Forward(r *http.Request) (*http.Response, error) {
	chosen := lb.selector.Next(lb.workers)
	if chosen == nil {
		lb.logger.Warn("No workers available",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", ErrNoWorkersAvailable))
		return noWorkersResponse(r), nil
	}

	chosen.IncrementConn()

	resp, err := lb.exchange(r, chosen)
	if err != nil {
		chosen.DecrementConn()
		return nil, err
	}

	return resp, nil
}

// UpdateSelectionStrategy replaces the strategy used for the next selection.
func (lb *LoadBalancer) UpdateSelectionStrategy(strat strategy.Strategy) {
	if strat == nil {
		return
	}

	lb.selector.SetStrategy(strat)
	lb.logger.Info("Selection strategy updated", slog.String("strategy", strat.Name()))
}

func (lb *LoadBalancer) Strategy() strategy.Strategy {
	return lb.selector.Strategy()
}

func (lb *LoadBalancer) Workers() *worker.Registry {
	return lb.workers
}

func (lb *LoadBalancer) transition(w *worker.Worker, status worker.Status) {
	if !w.SetStatus(status) {
		return
	}

	lb.logger.Info("Worker status changed",
		slog.String("worker", w.Address()),
		slog.String("status", status.String()))

	if lb.observer != nil {
		lb.observer(w, status)
	}
}

func noWorkersResponse(r *http.Request) *http.Response {
	const body = "no workers available\n"

	header := make(http.Header)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set(MarkerHeader, ProxyName)

	return &http.Response{
		Status:        "503 Service Unavailable",
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}
