// Package loadbalancer implements the forwarding engine: it owns the worker
// registry and the selector, picks a worker for every inbound request and
// performs a single HTTP/1.1 exchange with it over a dedicated connection.
package loadbalancer
