package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/internal/bootstrap"
	"github.com/paulgirard/ricardo-gph-analysis/internal/pipeline"
	"github.com/paulgirard/ricardo-gph-analysis/internal/timing"
	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/leaselock"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/spf13/cobra"
)

func runResolve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, err := bootstrap.LoadReference(ctx, cfg)
	if err != nil {
		return err
	}
	tables.Check()

	store, pool, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	progress := util.NewBatchProgress(len(cfg.Years()))
	observer := tradegraph.MultiObserver{
		timing.NewRecorder(pool),
		progressObserver{progress},
	}
	client, err := bootstrap.NewClient(cfg, tables, observer)
	if err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Client:  client,
		Source:  store,
		Store:   store,
		Locks:   leaselock.New(pool),
		LockTTL: bootstrap.LockTTL,
	}
	archive, err := bootstrap.OpenArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		runner.Archive = archive
	}

	report, err := runner.Run(ctx, cfg.Years())
	if err != nil {
		return err
	}
	logger.Info("[Resolve] Finished", "progress", progress.String())
	fmt.Fprintf(cmd.OutOrStdout(), "resolved %d years, failed %v\n", len(report.Resolved), report.Failed)
	return nil
}

// progressObserver logs the completion of the run as years come in.
type progressObserver struct {
	progress *util.BatchProgress
}

func (p progressObserver) YearBuilt(tradegraph.Stats, time.Duration) {
	p.progress.Built()
}

func (p progressObserver) YearResolved(stats tradegraph.Stats, _ time.Duration) {
	p.progress.Resolved()
	logger.Debug("[Resolve] Progress", "year", stats.Year, "percent", p.progress.Percentage())
}

func (p progressObserver) YearFailed(int, string, error) {
	p.progress.Failed()
}
