package httpserver

import "fmt"

// BindError means the listen address could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("binding %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// AcceptError means the listener failed while accepting a connection.
type AcceptError struct {
	Addr string
	Err  error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accepting on %s: %v", e.Addr, e.Err)
}

func (e *AcceptError) Unwrap() error { return e.Err }
