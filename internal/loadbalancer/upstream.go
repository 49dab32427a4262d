package loadbalancer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/angeloszaimis/workerproxy/internal/worker"
)

type workerKey struct{}

// WorkerFromResponse returns the worker that produced resp, or nil for
// responses synthesized by the proxy.
func WorkerFromResponse(resp *http.Response) *worker.Worker {
	if resp == nil || resp.Request == nil {
		return nil
	}
	w, _ := resp.Request.Context().Value(workerKey{}).(*worker.Worker)
	return w
}

func (lb *LoadBalancer) exchange(r *http.Request, chosen *worker.Worker) (*http.Response, error) {
	upstreamReq, err := lb.upstreamRequest(r, chosen)
	if err != nil {
		return nil, err
	}

	lb.logger.Debug("Forwarding to worker",
		slog.String("worker", chosen.Address()),
		slog.String("method", upstreamReq.Method),
		slog.String("uri", upstreamReq.URL.RequestURI()))

	conn, err := lb.dial(r.Context(), chosen)
	if err != nil {
		// The client went away; the worker is not at fault.
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return nil, fmt.Errorf("inbound request ended before dialing worker %s: %w", chosen.Address(), ctxErr)
		}
		lb.transition(chosen, worker.StatusDown)
		return nil, &UpstreamConnectError{Worker: chosen.Address(), Err: err}
	}

	if lb.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(lb.timeout))
	}

	stop := context.AfterFunc(r.Context(), func() {
		conn.Close()
	})

	fail := func(op string, err error) (*http.Response, error) {
		stop()
		conn.Close()
		return nil, &UpstreamProtocolError{Worker: chosen.Address(), Op: op, Err: err}
	}

	if err := upstreamReq.Write(conn); err != nil {
		return fail("writing request to", err)
	}

	resp, err := readFinalResponse(bufio.NewReader(conn), upstreamReq)
	if err != nil {
		return fail("reading response from", err)
	}

	resp.Body = &upstreamBody{
		ReadCloser: resp.Body,
		conn:       conn,
		stop:       stop,
		release:    chosen.DecrementConn,
	}
	resp.Header.Set(MarkerHeader, ProxyName)

	lb.transition(chosen, worker.StatusUp)

	return resp, nil
}

func (lb *LoadBalancer) dial(ctx context.Context, chosen *worker.Worker) (net.Conn, error) {
	if lb.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lb.timeout)
		defer cancel()
	}

	return lb.dialer.DialContext(ctx, "tcp", chosen.Authority())
}

// upstreamRequest copies method, path, query, headers and the fully
// buffered body of r onto a request addressed to the chosen worker.
func (lb *LoadBalancer) upstreamRequest(r *http.Request, chosen *worker.Worker) (*http.Request, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("reading inbound request body: %w", err)
		}
	}

	target := chosen.URL()
	target.Path = r.URL.Path
	target.RawPath = r.URL.RawPath
	target.RawQuery = r.URL.RawQuery

	ctx := context.WithValue(r.Context(), workerKey{}, chosen)

	upstreamReq, err := http.NewRequestWithContext(ctx, r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &InvalidUpstreamURIError{URI: target.String(), Err: err}
	}

	upstreamReq.Header = r.Header.Clone()
	if upstreamReq.Header == nil {
		upstreamReq.Header = make(http.Header)
	}
	upstreamReq.Header.Del("Host")
	upstreamReq.Host = chosen.Authority()

	// Request.Write adds a default User-Agent unless the key is present.
	if _, ok := upstreamReq.Header["User-Agent"]; !ok {
		upstreamReq.Header["User-Agent"] = nil
	}

	return upstreamReq, nil
}

// readFinalResponse skips interim 1xx responses such as 100 Continue.
// 101 Switching Protocols is final.
func readFinalResponse(br *bufio.Reader, req *http.Request) (*http.Response, error) {
	for {
		resp, err := http.ReadResponse(br, req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 100 || resp.StatusCode >= 200 || resp.StatusCode == http.StatusSwitchingProtocols {
			return resp, nil
		}

		_ = resp.Body.Close()
	}
}

// upstreamBody closes the dedicated worker connection and releases the
// worker's connection slot exactly once.
type upstreamBody struct {
	io.ReadCloser
	conn    net.Conn
	stop    func() bool
	release func()
	once    sync.Once
}

func (b *upstreamBody) Close() error {
	var err error
	b.once.Do(func() {
		b.stop()
		err = b.conn.Close()
		_ = b.ReadCloser.Close()
		b.release()
	})
	return err
}
