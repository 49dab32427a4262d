// Package httpserver runs the proxy's accept loop on top of http.Server.
//
// Binding and accepting are split so that callers can tell a bind failure
// (*BindError) from a failure of the running loop (*AcceptError). Both are
// fatal: the loop does not retry failed accepts.
package httpserver
