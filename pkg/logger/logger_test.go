package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/workerproxy/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		DescribeTable("level handling",
			func(level string, enabled, disabled slog.Level) {
				log, _ := logger.New(level, false, "dev", io.Discard)
				Expect(log.Enabled(ctx, enabled)).To(BeTrue())
				Expect(log.Enabled(ctx, disabled)).To(BeFalse())
			},
			Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
			Entry("debug", "debug", slog.LevelDebug, slog.LevelDebug-1),
			Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
			Entry("error", "error", slog.LevelError, slog.LevelWarn),
			Entry("uppercase", "WARN", slog.LevelWarn, slog.LevelInfo),
			Entry("invalid defaults to info", "invalid", slog.LevelInfo, slog.LevelDebug),
		)

		It("should write JSON with the environment attribute in prod", func() {
			var buf bytes.Buffer
			log, _ := logger.New("info", false, "prod", &buf)

			log.Info("hello", slog.String("worker", "http://127.0.0.1:9001"))

			var line map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &line)).To(Succeed())
			Expect(line).To(HaveKeyWithValue("msg", "hello"))
			Expect(line).To(HaveKeyWithValue("environment", "prod"))
			Expect(line).To(HaveKeyWithValue("worker", "http://127.0.0.1:9001"))
		})

		It("should write text outside prod", func() {
			var buf bytes.Buffer
			log, _ := logger.New("info", false, "dev", &buf)

			log.Info("hello")

			Expect(buf.String()).To(ContainSubstring("msg=hello"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
		})

		It("should change level through the returned LevelVar", func() {
			log, level := logger.New("info", false, "dev", io.Discard)
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeFalse())

			level.Set(slog.LevelDebug)
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeTrue())
		})
	})
})
