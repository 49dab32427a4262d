package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/workerproxy/internal/worker"
)

type randomStrategy struct{}

func (r *randomStrategy) Select(workers *worker.Registry, cursor int) (int, *worker.Worker) {
	if workers.IsEmpty() {
		return cursor, nil
	}

	index := rand.IntN(workers.Len())
	chosen, _ := workers.Get(index)
	return index, chosen
}

func (r *randomStrategy) Name() string {
	return Random
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
