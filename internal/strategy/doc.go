// Package strategy defines the worker selection strategy interface and its
// implementations:
//
//   - Round Robin: advances the cursor by one on every selection
//   - Random: picks a uniformly random worker
//
// Strategies are stateless with respect to the cursor; the caller owns the
// cursor and serializes access to it. New strategies only need to satisfy
// Strategy and register a name in New.
package strategy
