package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/workerproxy/internal/strategy"
	"github.com/angeloszaimis/workerproxy/internal/worker"
)

var _ = Describe("Table-Driven Strategy Tests", func() {
	DescribeTable("New resolves registered names",
		func(name string) {
			strat, err := strategy.New(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(strat.Name()).To(Equal(name))
		},
		Entry("Round Robin", strategy.RoundRobin),
		Entry("Random", strategy.Random),
	)

	DescribeTable("New rejects unknown names",
		func(name string) {
			strat, err := strategy.New(name)
			Expect(err).To(MatchError(strategy.ErrUnknownStrategy))
			Expect(strat).To(BeNil())
		},
		Entry("empty", ""),
		Entry("weighted", "weighted-round-robin"),
		Entry("wrong separator", "round_robin"),
	)

	It("lists every name New accepts", func() {
		for _, name := range strategy.Names() {
			_, err := strategy.New(name)
			Expect(err).NotTo(HaveOccurred())
		}
	})

	DescribeTable("All strategies select from the registry",
		func(createStrat func() strategy.Strategy) {
			registry := mustRegistry("http://localhost:8081", "http://localhost:8082")
			_, chosen := createStrat().Select(registry, 0)
			Expect(chosen).NotTo(BeNil())
			Expect(registry.All()).To(ContainElement(chosen))
		},
		Entry("Round Robin", strategy.NewRoundRobinStrategy),
		Entry("Random", strategy.NewRandomStrategy),
	)

	DescribeTable("All strategies handle an empty registry",
		func(createStrat func() strategy.Strategy) {
			Expect(func() {
				_, chosen := createStrat().Select(worker.NewRegistry(), 0)
				Expect(chosen).To(BeNil())
			}).NotTo(Panic())
		},
		Entry("Round Robin", strategy.NewRoundRobinStrategy),
		Entry("Random", strategy.NewRandomStrategy),
	)
})
