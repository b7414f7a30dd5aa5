package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulgirard/ricardo-gph-analysis/internal/bootstrap"
	"github.com/paulgirard/ricardo-gph-analysis/internal/config"
	"github.com/paulgirard/ricardo-gph-analysis/internal/queue"
	"github.com/paulgirard/ricardo-gph-analysis/internal/server"
	mid "github.com/paulgirard/ricardo-gph-analysis/internal/server/middleware"
	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	graphstorage "github.com/paulgirard/ricardo-gph-analysis/pkg/store/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(util.GetEnvString("CONFIG_PATH", "resolve.yaml"))
	if err != nil {
		bootstrap.InitLogger(config.Default(), "server")
		logger.Fatal("Invalid configuration", "err", err)
	}
	bootstrap.InitLogger(cfg, "server")

	store, pool, err := graphstorage.NewGraphDBStorage(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer pool.Close()

	keyfunc, err := bootstrap.Keyfunc(cfg)
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}
	if keyfunc == nil && cfg.APIKey == "" {
		logger.Warn("Neither AUTH_URL nor MASTER_API_KEY is set, the API rejects every request")
	}

	app := &mid.App{
		Years:   store,
		APIKey:  cfg.APIKey,
		Keyfunc: keyfunc,
	}

	archive, err := bootstrap.OpenArchive(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open snapshot archive", "err", err)
	}
	if archive != nil {
		app.Snapshots = archive
	}

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
	app.Queue = ch

	if err := server.Run(ctx, server.New(app), cfg.HTTPAddr()); err != nil {
		logger.Fatal("Failed shutting down server", "err", err)
	}
}
