package tradegraph

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// FlowSource provides the raw trade rows of a year.
type FlowSource interface {
	FlowRows(ctx context.Context, year int) ([]common.TradeRow, error)
}

// Observer is notified of the outcome of every year. Implementations must
// be safe for concurrent use.
type Observer interface {
	YearBuilt(stats Stats, took time.Duration)
	YearResolved(stats Stats, took time.Duration)
	YearFailed(year int, phase string, err error)
}

// MultiObserver forwards every notification to each of its observers.
type MultiObserver []Observer

func (m MultiObserver) YearBuilt(stats Stats, took time.Duration) {
	for _, o := range m {
		o.YearBuilt(stats, took)
	}
}

func (m MultiObserver) YearResolved(stats Stats, took time.Duration) {
	for _, o := range m {
		o.YearResolved(stats, took)
	}
}

func (m MultiObserver) YearFailed(year int, phase string, err error) {
	for _, o := range m {
		o.YearFailed(year, phase, err)
	}
}

// Client runs the two resolution phases over a range of years: every year
// graph is built first, then split flows are resolved against the frozen
// set of built graphs.
//
// A Client should be created using NewClient.
type Client struct {
	builder        *Builder
	parallelYears  int
	parallelRatios int
	maxYearGap     int
	firstYear      int
	lastYear       int
	observer       Observer
}

// NewClientParams defines the configuration of a Client.
//
// ParallelYears bounds how many years are built at once.
// ParallelRatios bounds how many years infer split ratios at once.
// MaxYearGap bounds how far from a year ratios are looked for.
// FirstYear and LastYear bound the years that hold data; they default to
// the year range of the builder's status reference.
type NewClientParams struct {
	Builder        *Builder
	ParallelYears  int
	ParallelRatios int
	MaxYearGap     int
	FirstYear      int
	LastYear       int
	Observer       Observer
}

// NewClient creates a Client from params, applying defaults to unset limits.
func NewClient(params NewClientParams) (*Client, error) {
	if params.Builder == nil {
		return nil, fmt.Errorf("tradegraph client needs a builder")
	}
	parallelYears := params.ParallelYears
	if parallelYears <= 0 {
		parallelYears = 8
	}
	parallelRatios := params.ParallelRatios
	if parallelRatios <= 0 {
		parallelRatios = 5
	}
	maxYearGap := params.MaxYearGap
	if maxYearGap <= 0 {
		maxYearGap = 10
	}
	firstYear, lastYear := params.FirstYear, params.LastYear
	if firstYear == 0 && lastYear == 0 && params.Builder.resolver != nil {
		firstYear, lastYear = params.Builder.resolver.Source().YearRange()
	}
	return &Client{
		builder:        params.Builder,
		parallelYears:  parallelYears,
		parallelRatios: parallelRatios,
		maxYearGap:     maxYearGap,
		firstYear:      firstYear,
		lastYear:       lastYear,
		observer:       params.Observer,
	}, nil
}

// Process builds and resolves the graphs of years. Ratios are searched in
// the built graphs of every year within the max gap of a requested year,
// so the result of a year does not depend on the other years requested.
// A requested year failing in either phase is logged and left out of the
// result; other years go on. Only a cancelled context aborts the whole run.
func (c *Client) Process(ctx context.Context, years []int, src FlowSource) (map[int]*Graph, error) {
	requested := slices.Compact(slices.Sorted(slices.Values(years)))
	toBuild := c.yearsToBuild(requested)
	logger.Info("[Resolve] Building year graphs", "years", len(requested), "neighbours", len(toBuild)-len(requested))
	built, err := c.buildYears(ctx, toBuild, requested, src)
	if err != nil {
		return nil, err
	}

	arena := NewArena(built)
	logger.Info("[Resolve] Resolving split flows", "years", len(requested))
	resolved, err := c.resolveYears(ctx, arena, requested)
	if err != nil {
		return nil, err
	}
	logger.Info("[Resolve] Done", "requested", len(requested), "resolved", len(resolved))
	return resolved, nil
}

// yearsToBuild adds to requested the years within maxYearGap of any of
// them, inside the data range. Requested years are always kept.
func (c *Client) yearsToBuild(requested []int) []int {
	out := slices.Clone(requested)
	if c.lastYear < c.firstYear || (c.firstYear == 0 && c.lastYear == 0) {
		return out
	}
	for _, year := range requested {
		for y := max(year-c.maxYearGap, c.firstYear); y <= min(year+c.maxYearGap, c.lastYear); y++ {
			out = append(out, y)
		}
	}
	return slices.Compact(slices.Sorted(slices.Values(out)))
}

func (c *Client) buildYears(ctx context.Context, years, requested []int, src FlowSource) (map[int]*Graph, error) {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelYears)
	mutex := sync.Mutex{}
	built := make(map[int]*Graph, len(years))

	for _, year := range years {
		_, isRequested := slices.BinarySearch(requested, year)
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			start := time.Now()
			rows, err := src.FlowRows(gCtx, year)
			if err != nil {
				c.buildFailed(year, isRequested, "rows", err)
				return nil
			}
			g, err := c.builder.Build(year, rows)
			if err != nil {
				c.buildFailed(year, isRequested, "build", err)
				return nil
			}
			if !isRequested && g.NodeCount() == 0 {
				return nil
			}
			if isRequested && c.observer != nil {
				c.observer.YearBuilt(g.Stats(), time.Since(start))
			}

			mutex.Lock()
			defer mutex.Unlock()
			built[year] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build year graphs: %w", err)
	}
	return built, nil
}

// buildFailed reports a requested year as failed. A neighbour year only
// serves ratio inference: it is left out of the arena with a warning.
func (c *Client) buildFailed(year int, requested bool, phase string, err error) {
	if requested {
		c.yearFailed(year, phase, err)
		return
	}
	logger.Warn("Neighbour year left out of ratio inference", "year", year, "phase", phase, "err", err)
}

func (c *Client) resolveYears(ctx context.Context, arena *Arena, years []int) (map[int]*Graph, error) {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelRatios)
	mutex := sync.Mutex{}
	resolved := make(map[int]*Graph)

	for _, year := range years {
		if _, ok := arena.Graph(year); !ok {
			continue
		}
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			start := time.Now()
			g, err := ResolveOneToMany(arena, year, c.maxYearGap)
			if err != nil {
				c.yearFailed(year, "split", err)
				return nil
			}
			stats := g.Stats()
			logger.With("year", year).Info("Year resolved",
				"nodes", g.NodeCount(), "edges", g.EdgeCount(), "unresolved", stats.Unresolved())
			if c.observer != nil {
				c.observer.YearResolved(stats, time.Since(start))
			}

			mutex.Lock()
			defer mutex.Unlock()
			resolved[year] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve split flows: %w", err)
	}
	return resolved, nil
}

func (c *Client) yearFailed(year int, phase string, err error) {
	logger.Error("Year excluded", "year", year, "phase", phase, "err", err)
	if c.observer != nil {
		c.observer.YearFailed(year, phase, err)
	}
}
