package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/angeloszaimis/workerproxy/config"
	"github.com/angeloszaimis/workerproxy/internal/handler"
	"github.com/angeloszaimis/workerproxy/internal/httpserver"
	"github.com/angeloszaimis/workerproxy/internal/loadbalancer"
	"github.com/angeloszaimis/workerproxy/internal/metrics"
	"github.com/angeloszaimis/workerproxy/internal/strategy"
	"github.com/angeloszaimis/workerproxy/internal/worker"
	"github.com/angeloszaimis/workerproxy/pkg/logger"
)

const metricsBufferSize = 1000

var errUsage = errors.New("usage: workerproxy serve [--port|-p <port>] --worker|-w <address>... [--config <file>]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		cancel()
		os.Exit(1)
	}
}

// run executes the command line and blocks until ctx is done or the server
// fails. Errors are logged before they are returned.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	bootLog, _ := logger.New(config.LogLevelInfo, false, config.EnvDev, stderr)

	if len(args) == 0 || args[0] != "serve" {
		bootLog.Error("Invalid command", slog.Any("err", errUsage))
		return errUsage
	}

	cfg, v, err := config.Load(args[1:], bootLog)
	if err != nil {
		bootLog.Error("Failed to load config", slog.Any("err", err))
		return err
	}

	log, level := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, stdout)

	strat, err := strategy.New(cfg.Strategy.Type)
	if err != nil {
		log.Error("Failed to create strategy",
			slog.String("strategy", cfg.Strategy.Type),
			slog.Any("err", err))
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Address != "" {
		collector = metrics.NewCollector(metricsBufferSize, log)
		if err := collector.TrackWorkers(cfg.Registry.All()); err != nil {
			log.Error("Failed to register worker metrics", slog.Any("err", err))
			return err
		}
		collector.Start(ctx)
	}

	lb := loadbalancer.NewLoadBalancer(cfg.Registry, strat,
		loadbalancer.WithLogger(log),
		loadbalancer.WithUpstreamTimeout(cfg.Upstream.Timeout),
		loadbalancer.WithStatusObserver(func(w *worker.Worker, status worker.Status) {
			collector.Emit(metrics.MetricEvent{
				Type:   metrics.EventStatusChanged,
				Worker: w.Address(),
				Status: status,
			})
		}))

	loadBalancerHandler := handler.NewLoadBalancerHandler(log, lb, collector)

	srv, err := httpserver.New(cfg.Server.ListenAddr(), loadBalancerHandler, log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	if err := srv.Listen(); err != nil {
		log.Error("Failed to bind", slog.Any("err", err))
		return err
	}

	servers := []*httpserver.Server{srv}

	if collector != nil {
		metricsSrv, err := httpserver.New(cfg.Metrics.Address, setupRouter(collector, lb), log)
		if err != nil {
			log.Error("Failed to create metrics server", slog.Any("err", err))
			return err
		}
		if err := metricsSrv.Listen(); err != nil {
			log.Error("Failed to bind metrics server", slog.Any("err", err))
			return err
		}
		servers = append(servers, metricsSrv)
	}

	if config.Watch(v, log, func(next *config.Config) {
		applyReload(log, level, lb, cfg, next)
	}) {
		log.Info("Watching config file for changes", slog.String("file", v.ConfigFileUsed()))
	}

	printBanner(stdout, srv.Addr(), cfg.Registry)

	srvErrCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *httpserver.Server) {
			srvErrCh <- s.Serve()
		}(s)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		shutdown(log, servers)
		return nil
	case err := <-srvErrCh:
		shutdown(log, servers)
		if err != nil {
			log.Error("Server stopped", slog.Any("err", err))
			return err
		}
		return nil
	}
}

func shutdown(log *slog.Logger, servers []*httpserver.Server) {
	for _, s := range servers {
		if err := s.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.String("addr", s.Addr()), slog.Any("err", err))
		}
	}
}

// applyReload applies the reloadable settings of next. Everything else is
// fixed for the life of the process.
func applyReload(log *slog.Logger, level *slog.LevelVar, lb *loadbalancer.LoadBalancer, current, next *config.Config) {
	if next.Strategy.Type != lb.Strategy().Name() {
		strat, err := strategy.New(next.Strategy.Type)
		if err != nil {
			log.Warn("Ignoring strategy change", slog.String("strategy", next.Strategy.Type), slog.Any("err", err))
		} else {
			lb.UpdateSelectionStrategy(strat)
		}
	}

	if lvl := logger.ParseLevel(next.Logging.Level); lvl != level.Level() {
		level.Set(lvl)
		log.Info("Log level updated", slog.String("level", lvl.String()))
	}

	if next.Server != current.Server ||
		next.Metrics != current.Metrics ||
		next.Upstream != current.Upstream ||
		!slices.Equal(next.Workers, current.Workers) {
		log.Warn("Config change requires a restart and was not applied",
			slog.String("reloadable", "strategy.type, logging.level"))
	}
}

func printBanner(w io.Writer, addr string, registry *worker.Registry) {
	fmt.Fprintf(w, "Serving load balancer on %s for:\n%s", addr, registry.String())
}
