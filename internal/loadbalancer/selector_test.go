package loadbalancer_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/workerproxy/internal/loadbalancer"
	"github.com/angeloszaimis/workerproxy/internal/strategy"
	"github.com/angeloszaimis/workerproxy/internal/worker"
)

var _ = Describe("Selector", func() {
	var (
		selector *loadbalancer.Selector
		registry *worker.Registry
	)

	BeforeEach(func() {
		selector = loadbalancer.NewSelector(strategy.NewRoundRobinStrategy())
		registry = mustRegistry(
			"http://localhost:8081",
			"http://localhost:8082",
			"http://localhost:8083",
			"http://localhost:8084",
		)
	})

	Describe("Next", func() {
		It("should start at index 1 because the cursor is pre-incremented", func() {
			first := selector.Next(registry)
			Expect(first.Address()).To(Equal("http://localhost:8082"))
			Expect(selector.Cursor()).To(Equal(1))
		})

		It("should visit every worker once per cycle", func() {
			seen := map[*worker.Worker]int{}
			for i := 0; i < registry.Len(); i++ {
				seen[selector.Next(registry)]++
			}
			Expect(seen).To(HaveLen(registry.Len()))
		})

		It("should keep the cursor within the registry bounds", func() {
			for i := 0; i < 10; i++ {
				selector.Next(registry)
				Expect(selector.Cursor()).To(BeNumerically(">=", 0))
				Expect(selector.Cursor()).To(BeNumerically("<", registry.Len()))
			}
		})

		It("should return nil for an empty registry", func() {
			Expect(selector.Next(worker.NewRegistry())).To(BeNil())
			Expect(selector.Next(nil)).To(BeNil())
		})

		It("should hand concurrent callers distinct successive steps", func() {
			const rounds = 50

			var (
				wg     sync.WaitGroup
				mutex  sync.Mutex
				counts = map[string]int{}
			)

			for i := 0; i < rounds*registry.Len(); i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					chosen := selector.Next(registry)
					mutex.Lock()
					counts[chosen.Address()]++
					mutex.Unlock()
				}()
			}
			wg.Wait()

			Expect(counts).To(HaveLen(registry.Len()))
			for _, count := range counts {
				Expect(count).To(Equal(rounds))
			}
		})
	})

	Describe("SetStrategy", func() {
		It("should not reset the cursor", func() {
			selector.Next(registry)
			selector.Next(registry)
			Expect(selector.Cursor()).To(Equal(2))

			selector.SetStrategy(strategy.NewRoundRobinStrategy())
			Expect(selector.Cursor()).To(Equal(2))
			Expect(selector.Next(registry).Address()).To(Equal("http://localhost:8084"))
		})

		It("should take effect on the next selection", func() {
			selector.SetStrategy(strategy.NewRandomStrategy())
			Expect(selector.Strategy().Name()).To(Equal(strategy.Random))
			Expect(registry.All()).To(ContainElement(selector.Next(registry)))
		})

		It("should ignore a nil strategy", func() {
			selector.SetStrategy(nil)
			Expect(selector.Strategy().Name()).To(Equal(strategy.RoundRobin))
		})
	})

	It("should default to round robin", func() {
		Expect(loadbalancer.NewSelector(nil).Strategy().Name()).To(Equal(strategy.RoundRobin))
	})
})
