// Package worker models the backend servers the proxy forwards to and the
// immutable registry built from configuration at startup. Workers track a
// coarse lifecycle status and the number of in-flight requests routed to them.
package worker
