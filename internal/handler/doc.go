// Package handler implements the inbound HTTP handler of the proxy.
// It hands every request to the load balancer and relays the worker's
// response, or answers 503 when forwarding fails.
package handler
