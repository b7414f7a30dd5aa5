package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulgirard/ricardo-gph-analysis/internal/bootstrap"
	"github.com/paulgirard/ricardo-gph-analysis/internal/config"
	"github.com/paulgirard/ricardo-gph-analysis/internal/metrics"
	"github.com/paulgirard/ricardo-gph-analysis/internal/pipeline"
	"github.com/paulgirard/ricardo-gph-analysis/internal/queue"
	"github.com/paulgirard/ricardo-gph-analysis/internal/server"
	mid "github.com/paulgirard/ricardo-gph-analysis/internal/server/middleware"
	"github.com/paulgirard/ricardo-gph-analysis/internal/timing"
	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/leaselock"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(util.GetEnvString("CONFIG_PATH", "resolve.yaml"))
	if err != nil {
		// the logger is not configured yet
		bootstrap.InitLogger(config.Default(), "worker")
		logger.Fatal("Invalid configuration", "err", err)
	}
	bootstrap.InitLogger(cfg, "worker")

	tables, err := bootstrap.LoadReference(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load reference tables", "err", err)
	}
	tables.Check()

	store, pool, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pool.Close()

	m := metrics.New()
	client, err := bootstrap.NewClient(cfg, tables, tradegraph.MultiObserver{m, timing.NewRecorder(pool)})
	if err != nil {
		logger.Fatal("Failed to create resolution client", "err", err)
	}

	runner := &pipeline.Runner{
		Client:  client,
		Source:  store,
		Store:   store,
		Locks:   leaselock.New(pool),
		LockTTL: bootstrap.LockTTL,
	}
	app := &mid.App{Years: store, Metrics: m.Handler()}
	archive, err := bootstrap.OpenArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open snapshot archive", "err", err)
	}
	if archive != nil {
		runner.Archive = archive
		app.Snapshots = archive
	}

	// Init rabbitmq
	conn, err := queue.Dial(cfg.Queue.URL())
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.ResolveQueue}); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	// A job holds leases on its years, one job at a time per worker.
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	go func() {
		if err := server.Run(ctx, server.New(app), cfg.HTTPAddr()); err != nil {
			logger.Error("Metrics server stopped", "err", err)
		}
	}()

	err = queue.Consume(ctx, ch, queue.ResolveQueue, func(ctx context.Context, job queue.Job) error {
		report, err := runner.Run(ctx, job.Years())
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			logger.Warn("Years excluded from job", "job", job.ID, "years", report.Failed)
		}
		return nil
	})
	if err != nil {
		logger.Fatal("Consumer stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}
