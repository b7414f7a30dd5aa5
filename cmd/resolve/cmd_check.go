package main

import (
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/internal/bootstrap"
	"github.com/paulgirard/ricardo-gph-analysis/internal/timing"
	graphstorage "github.com/paulgirard/ricardo-gph-analysis/pkg/store/pgx"

	"github.com/spf13/cobra"
)

func runCheck(cmd *cobra.Command, _ []string) error {
	tables, err := bootstrap.LoadReference(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	problems := tables.Check()
	fmt.Fprintf(cmd.OutOrStdout(), "%d entities, %d units, %d groups: %d problems\n",
		len(tables.Entities), len(tables.Units), len(tables.Groups), problems)
	if problems > 0 {
		return fmt.Errorf("reference tables have %d problems", problems)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if err := graphstorage.Migrate(cfg.MigrationsDir, cfg.DatabaseURL); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	_, pool, err := bootstrap.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	recorder := timing.NewRecorder(pool)
	years := len(cfg.Years())
	build, err := recorder.PredictBatchDuration(cmd.Context(), timing.PhaseBuild, years)
	if err != nil {
		return err
	}
	resolve, err := recorder.PredictBatchDuration(cmd.Context(), timing.PhaseResolve, years)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d years: build %s, resolve %s (sequential)\n", years, build, resolve)
	return nil
}
