package loadbalancer

import (
	"sync"

	"github.com/angeloszaimis/workerproxy/internal/strategy"
	"github.com/angeloszaimis/workerproxy/internal/worker"
)

// Selector holds the selection cursor and the active strategy. The mutex
// covers only cursor arithmetic and the registry lookup, never network I/O.
type Selector struct {
	mutex    sync.Mutex
	cursor   int
	strategy strategy.Strategy
}

func NewSelector(strat strategy.Strategy) *Selector {
	if strat == nil {
		strat = strategy.NewRoundRobinStrategy()
	}

	return &Selector{strategy: strat}
}

// Next returns the worker to use for the next request, or nil if the
// registry is empty.
func (s *Selector) Next(workers *worker.Registry) *worker.Worker {
	if workers.IsEmpty() {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	next, chosen := s.strategy.Select(workers, s.cursor)
	s.cursor = next

	return chosen
}

// SetStrategy swaps the strategy without resetting the cursor.
func (s *Selector) SetStrategy(strat strategy.Strategy) {
	if strat == nil {
		return
	}

	s.mutex.Lock()
	s.strategy = strat
	s.mutex.Unlock()
}

func (s *Selector) Strategy() strategy.Strategy {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.strategy
}
