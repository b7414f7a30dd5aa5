package pipeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/leaselock"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"
)

type GraphSaver interface {
	SaveGraph(ctx context.Context, g *tradegraph.Graph) error
}

type SnapshotPutter interface {
	PutSnapshot(ctx context.Context, g *tradegraph.Graph) error
}

type YearLocker interface {
	WithYears(ctx context.Context, years []int, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// Runner resolves a batch of years and persists every resolved graph.
// Archive and Locks are optional.
type Runner struct {
	Client  *tradegraph.Client
	Source  tradegraph.FlowSource
	Store   GraphSaver
	Archive SnapshotPutter
	Locks   YearLocker
	LockTTL time.Duration
}

// Report lists what became of the requested years.
type Report struct {
	Resolved []int
	Failed   []int
}

// Run resolves years and saves them. With Locks set the years stay leased
// for the whole run, so two runs never write the same year at once.
func (r *Runner) Run(ctx context.Context, years []int) (Report, error) {
	if r.Client == nil || r.Source == nil || r.Store == nil {
		return Report{}, fmt.Errorf("pipeline runner is missing a client, a source or a store")
	}
	if r.Locks == nil {
		return r.run(ctx, years)
	}

	var report Report
	err := r.Locks.WithYears(ctx, years, leaselock.Options{TTL: r.LockTTL, TokenPrefix: "resolve:"}, func(ctx context.Context) error {
		var err error
		report, err = r.run(ctx, years)
		return err
	})
	return report, err
}

func (r *Runner) run(ctx context.Context, years []int) (Report, error) {
	graphs, err := r.Client.Process(ctx, years, r.Source)
	if err != nil {
		return Report{}, err
	}

	report := Report{Resolved: slices.Sorted(maps.Keys(graphs))}
	for _, year := range slices.Compact(slices.Sorted(slices.Values(years))) {
		if _, ok := graphs[year]; !ok {
			report.Failed = append(report.Failed, year)
		}
	}

	for _, year := range report.Resolved {
		g := graphs[year]
		if err := r.Store.SaveGraph(ctx, g); err != nil {
			return report, fmt.Errorf("failed to save year %d: %w", year, err)
		}
		if r.Archive != nil {
			if err := r.Archive.PutSnapshot(ctx, g); err != nil {
				return report, err
			}
		}
	}
	logger.Info("[Pipeline] Years saved", "resolved", len(report.Resolved), "failed", len(report.Failed))
	return report, nil
}
