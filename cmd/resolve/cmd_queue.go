package main

import (
	"fmt"

	"github.com/paulgirard/ricardo-gph-analysis/internal/queue"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"

	"github.com/spf13/cobra"
)

func runEnqueue(cmd *cobra.Command, _ []string) error {
	jobs, err := queue.Batches(cfg.StartYear, cfg.EndYear, cfg.BatchSize)
	if err != nil {
		return err
	}

	conn, err := queue.Dial(cfg.Queue.URL())
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.ResolveQueue}); err != nil {
		return err
	}
	if err := queue.PublishJobs(ch, queue.ResolveQueue, jobs); err != nil {
		return err
	}

	logger.Info("[Queue] Jobs published", "from", cfg.StartYear, "to", cfg.EndYear, "jobs", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d-%d\n", job.ID, job.From, job.To)
	}
	return nil
}
