package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/internal/config"
	"github.com/paulgirard/ricardo-gph-analysis/internal/storage"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/gph"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/loader"
	ioloader "github.com/paulgirard/ricardo-gph-analysis/pkg/loader/io"
	s3loader "github.com/paulgirard/ricardo-gph-analysis/pkg/loader/s3"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger/console"
	graphstorage "github.com/paulgirard/ricardo-gph-analysis/pkg/store/pgx"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func InitLogger(cfg *config.Config, prefix string) {
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		JSON:   cfg.LogFormat == "json",
		Prefix: prefix,
	})
	logger.Init(consoleLogger)
}

// FileLoader reads the reference tables from the reference bucket when one
// is configured, from DataDir otherwise.
func FileLoader(ctx context.Context, cfg *config.Config) (loader.FileLoader, error) {
	if cfg.Reference.Bucket == "" {
		return ioloader.NewIOFileLoader(cfg.DataDir), nil
	}
	return s3loader.NewS3FileLoader(ctx, s3loader.NewS3FileLoaderParams{
		Bucket:    cfg.Reference.Bucket,
		Prefix:    cfg.Reference.Prefix,
		Endpoint:  cfg.Archive.Endpoint,
		Region:    cfg.Archive.Region,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
	})
}

func LoadReference(ctx context.Context, cfg *config.Config) (*loader.Tables, error) {
	fl, err := FileLoader(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference loader: %w", err)
	}
	return loader.Load(ctx, fl, loader.DefaultPaths())
}

// NewClient builds the resolution client over the reference tables.
func NewClient(cfg *config.Config, tables *loader.Tables, observer tradegraph.Observer) (*tradegraph.Client, error) {
	resolver := gph.NewResolver(tables.Dataset(), cfg.Priority())
	return tradegraph.NewClient(tradegraph.NewClientParams{
		Builder:        tradegraph.NewBuilder(resolver, tables.Reference()),
		ParallelYears:  cfg.ParallelYears,
		ParallelRatios: cfg.ParallelRatios,
		MaxYearGap:     cfg.MaxYearGap,
		Observer:       observer,
	})
}

// OpenStore migrates the database and connects to it.
func OpenStore(ctx context.Context, cfg *config.Config) (*graphstorage.GraphDBStorage, *pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if err := graphstorage.Migrate(cfg.MigrationsDir, cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}
	return graphstorage.NewGraphDBStorage(ctx, cfg.DatabaseURL)
}

// OpenArchive returns nil when no archive bucket is configured.
func OpenArchive(ctx context.Context, cfg *config.Config) (*storage.Archive, error) {
	if cfg.Archive.Bucket == "" {
		return nil, nil
	}
	return storage.NewArchive(ctx, storage.NewArchiveParams{
		Bucket:    cfg.Archive.Bucket,
		Prefix:    cfg.Archive.Prefix,
		Endpoint:  cfg.Archive.Endpoint,
		Region:    cfg.Archive.Region,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
	})
}

// Keyfunc fetches the signing keys published under AuthURL. Without
// AuthURL only the API key authenticates.
func Keyfunc(cfg *config.Config) (jwt.Keyfunc, error) {
	if cfg.AuthURL == "" {
		return nil, nil
	}
	k, err := keyfunc.NewDefault([]string{cfg.AuthURL + "/jwks"})
	if err != nil {
		return nil, fmt.Errorf("failed to load jwks keys: %w", err)
	}
	return k.Keyfunc, nil
}

// LockTTL is how long a year lease outlives a silent worker.
const LockTTL = 2 * time.Minute
