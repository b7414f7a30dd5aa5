package main

import (
	"github.com/paulgirard/ricardo-gph-analysis/internal/bootstrap"
	"github.com/paulgirard/ricardo-gph-analysis/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	fromYear   int
	toYear     int
	batchSize  int

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           "resolve",
		Short:         "Resolve RICardo trade flows onto GeoPolHist entities",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyYearFlags(cmd, c)
			if err := c.Validate(); err != nil {
				return err
			}
			cfg = c
			bootstrap.InitLogger(cfg, "resolve")
			return nil
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Build, resolve and store the graphs of a year range",
		RunE:  runResolve, // Defined in cmd_run.go
	}

	enqueueCmd = &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a year range as batch jobs for the workers",
		RunE:  runEnqueue, // Defined in cmd_queue.go
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Load the reference tables and report inconsistencies",
		RunE:  runCheck, // Defined in cmd_check.go
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		RunE:  runMigrate, // Defined in cmd_check.go
	}

	estimateCmd = &cobra.Command{
		Use:   "estimate",
		Short: "Estimate how long a year range takes from recorded timings",
		RunE:  runEstimate, // Defined in cmd_check.go
	}
)

// applyYearFlags lets --from, --to and --batch-size override the settings.
func applyYearFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("from") {
		c.StartYear = fromYear
	}
	if cmd.Flags().Changed("to") {
		c.EndYear = toYear
	}
	if cmd.Flags().Changed("batch-size") {
		c.BatchSize = batchSize
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "resolve.yaml", "Path to the YAML settings file")

	for _, cmd := range []*cobra.Command{runCmd, enqueueCmd, estimateCmd} {
		cmd.Flags().IntVar(&fromYear, "from", 0, "First year to process (defaults to start_year)")
		cmd.Flags().IntVar(&toYear, "to", 0, "Last year to process (defaults to end_year)")
	}
	enqueueCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Years per job (defaults to batch_size)")

	rootCmd.AddCommand(runCmd, enqueueCmd, checkCmd, migrateCmd, estimateCmd)
}
