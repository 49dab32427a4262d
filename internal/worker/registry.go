package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// RecommendedMinimum is the worker count below which Parse logs a warning.
const RecommendedMinimum = 2

// ErrNoWorkers is returned by Parse when no worker address was supplied.
var ErrNoWorkers = errors.New("at least 1 worker must be specified")

// Registry is the deduplicated, immutable set of workers configured for the
// lifetime of the process. It is shared by pointer and needs no locking.
type Registry struct {
	workers []*Worker
}

// Parse builds a Registry from raw worker addresses.
//
// Duplicate addresses are collapsed. An empty input fails with ErrNoWorkers.
// Addresses that cannot be parsed are logged and dropped, so the returned
// registry may hold fewer entries than requested, including none at all;
// callers that need at least one worker must check IsEmpty themselves.
func Parse(rawAddresses []string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	unique := dedup(rawAddresses)
	if len(unique) == 0 {
		return nil, ErrNoWorkers
	}

	if len(unique) < RecommendedMinimum {
		logger.Warn("Fewer workers than recommended",
			slog.Int("workers", len(unique)),
			slog.Int("recommended", RecommendedMinimum))
	}

	registry := &Registry{workers: make([]*Worker, 0, len(unique))}
	seen := make(map[string]struct{}, len(unique))

	for _, raw := range unique {
		w, err := New(raw)
		if err != nil {
			logger.Warn("Dropping invalid worker address",
				slog.String("address", raw),
				slog.Any("err", err))
			continue
		}

		if _, dup := seen[w.Address()]; dup {
			logger.Warn("Dropping duplicate worker address",
				slog.String("address", raw),
				slog.String("normalized", w.Address()))
			continue
		}

		seen[w.Address()] = struct{}{}
		registry.workers = append(registry.workers, w)
	}

	return registry, nil
}

// NewRegistry wraps already constructed workers.
func NewRegistry(workers ...*Worker) *Registry {
	return &Registry{workers: append([]*Worker(nil), workers...)}
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.workers)
}

func (r *Registry) IsEmpty() bool {
	return r.Len() == 0
}

// Get returns the worker at index, or false if index is out of range.
func (r *Registry) Get(index int) (*Worker, bool) {
	if index < 0 || index >= r.Len() {
		return nil, false
	}
	return r.workers[index], true
}

// All returns a copy of the worker slice.
func (r *Registry) All() []*Worker {
	if r == nil {
		return nil
	}
	return append([]*Worker(nil), r.workers...)
}

// String renders one "--> [n] address" line per worker.
func (r *Registry) String() string {
	var b strings.Builder
	for i, w := range r.All() {
		fmt.Fprintf(&b, "--> [%d] %s\n", i+1, w.Address())
	}
	return b.String()
}

func dedup(rawAddresses []string) []string {
	seen := make(map[string]struct{}, len(rawAddresses))
	unique := make([]string, 0, len(rawAddresses))

	for _, raw := range rawAddresses {
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		unique = append(unique, raw)
	}

	return unique
}
