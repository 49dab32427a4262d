package strategy

import (
	"github.com/angeloszaimis/workerproxy/internal/worker"
)

type roundRobinStrategy struct{}

// Select pre-increments the cursor, so a fresh cursor of 0 yields index 1.
func (rb *roundRobinStrategy) Select(workers *worker.Registry, cursor int) (int, *worker.Worker) {
	if workers.IsEmpty() {
		return cursor, nil
	}

	next := (cursor + 1) % workers.Len()
	if next < 0 {
		next += workers.Len()
	}

	chosen, _ := workers.Get(next)
	return next, chosen
}

func (rb *roundRobinStrategy) Name() string {
	return RoundRobin
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
