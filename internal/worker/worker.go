package worker

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	DefaultScheme = "http"
	DefaultPort   = "80"
)

// Status is the coarse lifecycle state of a worker.
type Status int

const (
	StatusPending Status = iota
	StatusStarting
	StatusUp
	StatusDown
	StatusFailed
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStarting:
		return "starting"
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Worker is a single backend target. Its address never changes after
// construction; status and connection count are safe for concurrent use.
type Worker struct {
	url               *url.URL
	mutex             sync.Mutex
	status            Status
	activeConnections int
}

// New parses and normalizes rawAddress into a Worker in the pending state.
// A missing scheme defaults to http and a missing port to 80.
func New(rawAddress string) (*Worker, error) {
	u, err := normalize(rawAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid worker address %q: %w", rawAddress, err)
	}

	return &Worker{
		url:    u,
		status: StatusPending,
	}, nil
}

// URL returns the normalized worker address (scheme and host:port only).
func (w *Worker) URL() *url.URL {
	u := *w.url
	return &u
}

// Address is the worker identity, e.g. "http://10.0.0.1:8080".
func (w *Worker) Address() string {
	return w.url.String()
}

// Authority returns host:port, suitable for dialing and for the Host header.
func (w *Worker) Authority() string {
	return w.url.Host
}

func (w *Worker) String() string {
	return w.Address()
}

// Status returns the current lifecycle status.
func (w *Worker) Status() Status {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.status
}

// SetStatus updates the lifecycle status.
// Returns true if the status changed, false if it was already in that state.
func (w *Worker) SetStatus(status Status) (changed bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.status == status {
		return false
	}

	w.status = status
	return true
}

// IncrementConn increments the active connection count.
func (w *Worker) IncrementConn() {
	w.mutex.Lock()
	w.activeConnections++
	w.mutex.Unlock()
}

// DecrementConn decrements the active connection count.
func (w *Worker) DecrementConn() {
	w.mutex.Lock()
	if w.activeConnections > 0 {
		w.activeConnections--
	}
	w.mutex.Unlock()
}

// ActiveConnections returns the current number of in-flight requests.
func (w *Worker) ActiveConnections() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.activeConnections
}

func normalize(rawAddress string) (*url.URL, error) {
	raw := strings.TrimSpace(rawAddress)
	if raw == "" {
		return nil, validation.NewError("validation_empty_address", "address cannot be empty")
	}

	if !strings.Contains(raw, "://") {
		raw = DefaultScheme + "://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	if parsed.Scheme != DefaultScheme {
		return nil, validation.NewError("validation_invalid_scheme", "address must use the http scheme")
	}

	if parsed.User != nil {
		return nil, validation.NewError("validation_invalid_userinfo", "address must not carry credentials")
	}

	host := parsed.Hostname()
	port := parsed.Port()
	if port == "" {
		port = DefaultPort
	}

	err = validation.Errors{
		"host": validation.Validate(host, validation.Required, is.Host),
		"port": validation.Validate(port, validation.Required, is.Port),
	}.Filter()
	if err != nil {
		return nil, err
	}

	return &url.URL{
		Scheme: DefaultScheme,
		Host:   net.JoinHostPort(host, port),
	}, nil
}
