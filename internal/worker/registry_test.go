package worker_test

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/workerproxy/internal/worker"
)

var _ = Describe("Registry", func() {
	var (
		logs *bytes.Buffer
		log  *slog.Logger
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		log = slog.New(slog.NewTextHandler(logs, nil))
	})

	Describe("Parse", func() {
		It("should deduplicate addresses", func() {
			registry, err := worker.Parse([]string{"a", "a", "b"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Len()).To(Equal(2))
		})

		It("should collapse addresses that normalize to the same worker", func() {
			registry, err := worker.Parse([]string{"http://a:80", "a", "b:81"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Len()).To(Equal(2))
			Expect(logs.String()).To(ContainSubstring("Dropping duplicate worker address"))
		})

		It("should fail with ErrNoWorkers on an empty list", func() {
			registry, err := worker.Parse(nil, log)
			Expect(err).To(MatchError(worker.ErrNoWorkers))
			Expect(registry).To(BeNil())
		})

		It("should warn when below the recommended minimum", func() {
			registry, err := worker.Parse([]string{"http://127.0.0.1:9001", "http://127.0.0.1:9001"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Len()).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("Fewer workers than recommended"))
		})

		It("should not warn with enough workers", func() {
			_, err := worker.Parse([]string{"http://127.0.0.1:9001", "http://127.0.0.1:9002"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(logs.String()).NotTo(ContainSubstring("Fewer workers than recommended"))
		})

		It("should drop invalid addresses and keep the rest", func() {
			registry, err := worker.Parse([]string{"https://secure:443", "http://127.0.0.1:9001", "http://:1"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Len()).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("Dropping invalid worker address"))
		})

		// Zero survivors are not re-validated here; the config layer rejects them.
		It("should return an empty registry when every address is invalid", func() {
			registry, err := worker.Parse([]string{"ftp://x", "http://:1"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry).NotTo(BeNil())
			Expect(registry.IsEmpty()).To(BeTrue())
		})

		It("should keep first-seen order", func() {
			registry, err := worker.Parse([]string{"c", "a", "c", "b"}, log)
			Expect(err).NotTo(HaveOccurred())

			addresses := []string{}
			for _, w := range registry.All() {
				addresses = append(addresses, w.Address())
			}
			Expect(addresses).To(Equal([]string{"http://c:80", "http://a:80", "http://b:80"}))
		})

		It("should fall back to the default logger", func() {
			registry, err := worker.Parse([]string{"a"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Len()).To(Equal(1))
		})
	})

	Describe("Accessors", func() {
		var registry *worker.Registry

		BeforeEach(func() {
			var err error
			registry, err = worker.Parse([]string{"http://127.0.0.1:9001", "http://127.0.0.1:9002"}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should look workers up by index", func() {
			w, ok := registry.Get(1)
			Expect(ok).To(BeTrue())
			Expect(w.Address()).To(Equal("http://127.0.0.1:9002"))
		})

		It("should return false for out of range indexes", func() {
			_, ok := registry.Get(2)
			Expect(ok).To(BeFalse())
			_, ok = registry.Get(-1)
			Expect(ok).To(BeFalse())
		})

		It("should not expose its backing slice", func() {
			all := registry.All()
			all[0] = nil
			w, _ := registry.Get(0)
			Expect(w).NotTo(BeNil())
		})

		It("should render the worker list", func() {
			Expect(registry.String()).To(Equal(
				"--> [1] http://127.0.0.1:9001\n--> [2] http://127.0.0.1:9002\n"))
		})

		It("should treat a nil registry as empty", func() {
			var empty *worker.Registry
			Expect(empty.IsEmpty()).To(BeTrue())
			_, ok := empty.Get(0)
			Expect(ok).To(BeFalse())
		})
	})
})
