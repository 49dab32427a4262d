package strategy

import (
	"errors"
	"fmt"

	"github.com/angeloszaimis/workerproxy/internal/worker"
)

const (
	RoundRobin = "round-robin"
	Random     = "random"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy picks the next worker given the registry and the current cursor.
// It returns the new cursor along with the chosen worker, or nil if the
// registry is empty.
type Strategy interface {
	Name() string
	Select(workers *worker.Registry, cursor int) (next int, chosen *worker.Worker)
}

// Names lists every strategy accepted by New.
func Names() []string {
	return []string{RoundRobin, Random}
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	switch name {
	case RoundRobin:
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}
