package loadbalancer

import (
	"errors"
	"fmt"
)

var ErrNoWorkersAvailable = errors.New("no workers available")

// UpstreamConnectError means the TCP connection to the worker could not be
// established.
type UpstreamConnectError struct {
	Worker string
	Err    error
}

func (e *UpstreamConnectError) Error() string {
	return fmt.Sprintf("connecting to worker %s: %v", e.Worker, e.Err)
}

func (e *UpstreamConnectError) Unwrap() error { return e.Err }

// UpstreamProtocolError means the connection was established but the
// request could not be written or a valid response could not be read.
type UpstreamProtocolError struct {
	Worker string
	Op     string
	Err    error
}

func (e *UpstreamProtocolError) Error() string {
	return fmt.Sprintf("%s worker %s: %v", e.Op, e.Worker, e.Err)
}

func (e *UpstreamProtocolError) Unwrap() error { return e.Err }

// InvalidUpstreamURIError means no valid upstream request could be built.
type InvalidUpstreamURIError struct {
	URI string
	Err error
}

func (e *InvalidUpstreamURIError) Error() string {
	return fmt.Sprintf("invalid upstream uri %q: %v", e.URI, e.Err)
}

func (e *InvalidUpstreamURIError) Unwrap() error { return e.Err }

// ErrorKind classifies a forwarding error for logs and metrics.
func ErrorKind(err error) string {
	var (
		connectErr  *UpstreamConnectError
		protocolErr *UpstreamProtocolError
		uriErr      *InvalidUpstreamURIError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoWorkersAvailable):
		return "no_workers"
	case errors.As(err, &connectErr):
		return "connect"
	case errors.As(err, &protocolErr):
		return "protocol"
	case errors.As(err, &uriErr):
		return "invalid_uri"
	default:
		return "generic"
	}
}
