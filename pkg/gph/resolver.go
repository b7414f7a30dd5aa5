package gph

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownCode is returned when a code is missing from the entity
	// reference. It points at an integrity problem in the reference tables.
	ErrUnknownCode = errors.New("unknown GPH code")
	// ErrSovereigntyCycle is returned when a sovereign chain loops.
	ErrSovereigntyCycle = errors.New("sovereignty cycle")
)

// maxInformalDepth bounds the recursion through informal parts that are
// themselves informal or without status.
const maxInformalDepth = 3

// PriorityOrder ranks status kinds, highest priority first. When an entity
// has several records in a year, the record whose kind ranks first is the
// effective one. Kinds missing from the order rank after every listed kind
// and keep their dataset order.
type PriorityOrder []common.StatusKind

func (p PriorityOrder) rank(kind common.StatusKind) int {
	for i, k := range p {
		if k == kind {
			return i
		}
	}
	return len(p)
}

// Pick returns the effective record among records.
func (p PriorityOrder) Pick(records []common.StatusRecord) (common.StatusRecord, bool) {
	if len(records) == 0 {
		return common.StatusRecord{}, false
	}
	best := 0
	bestRank := p.rank(records[0].Status)
	for i := 1; i < len(records); i++ {
		if r := p.rank(records[i].Status); r < bestRank {
			best, bestRank = i, r
		}
	}
	return records[best], true
}

// Resolution is the autonomous entity a code resolves to in a year.
// Status is empty when the entity has no record that year.
type Resolution struct {
	Entity     common.GPHEntity
	Status     common.StatusKind
	Autonomous bool
}

// Resolver answers sovereignty questions against a StatusSource. It holds
// no per-year state and is safe for concurrent use.
type Resolver struct {
	src      StatusSource
	priority PriorityOrder

	informalCache sync.Map
	informalGroup singleflight.Group
}

// NewResolver creates a resolver over src using the given priority order.
func NewResolver(src StatusSource, priority PriorityOrder) *Resolver {
	return &Resolver{
		src:      src,
		priority: priority,
	}
}

// Source returns the underlying status reference.
func (r *Resolver) Source() StatusSource {
	return r.src
}

// StatusOf returns the effective status record of code in year.
func (r *Resolver) StatusOf(code string, year int) (common.StatusRecord, bool) {
	return r.priority.Pick(r.src.Records(code, year))
}

// ResolveAutonomous follows code's sovereign chain in year until it reaches
// an autonomous entity, an informal entity, or a dead end.
func (r *Resolver) ResolveAutonomous(code string, year int) (Resolution, error) {
	return r.resolve(code, year, make(map[string]bool))
}

func (r *Resolver) resolve(code string, year int, visited map[string]bool) (Resolution, error) {
	entity, ok := r.src.Entity(code)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownCode, code)
	}
	if visited[code] {
		return Resolution{}, fmt.Errorf("%w: %s in %d", ErrSovereigntyCycle, code, year)
	}
	visited[code] = true

	record, ok := r.StatusOf(code, year)
	if !ok {
		past, found := r.lastRecordBefore(code, year)
		if found && past.Status == common.StatusDissolvedInto && past.Sovereign != "" {
			// the successor is resolved at the requested year, not at the year of dissolution
			return r.resolve(past.Sovereign, year, visited)
		}
		return Resolution{Entity: entity}, nil
	}

	switch {
	case record.Status.IsAutonomousTerminal():
		return Resolution{Entity: entity, Status: record.Status, Autonomous: true}, nil
	case record.Status == common.StatusInformal:
		return Resolution{Entity: entity, Status: record.Status}, nil
	case record.Sovereign != "":
		return r.resolve(record.Sovereign, year, visited)
	default:
		logger.Warn("Status without sovereign", "code", code, "name", entity.Name, "status", record.Status, "year", year)
		return Resolution{Entity: entity, Status: record.Status}, nil
	}
}

func (r *Resolver) lastRecordBefore(code string, year int) (common.StatusRecord, bool) {
	first, _ := r.src.YearRange()
	for y := year - 1; y >= first; y-- {
		if record, ok := r.StatusOf(code, y); ok {
			return record, true
		}
	}
	return common.StatusRecord{}, false
}

// DerivedInformalParts lists the autonomous entities an informal entity was
// made of in year, derived from the status dataset: every entity that was at
// some point "Part of" or "Dissolved into" it and has a record in year.
// Results are cached per code and year.
func (r *Resolver) DerivedInformalParts(code string, year int) []string {
	key := code + "|" + strconv.Itoa(year)
	if cached, ok := r.informalCache.Load(key); ok {
		return cached.([]string)
	}
	result, _, _ := r.informalGroup.Do(key, func() (any, error) {
		if cached, ok := r.informalCache.Load(key); ok {
			return cached, nil
		}
		parts := r.informalParts(code, year, 0)
		r.informalCache.Store(key, parts)
		return parts, nil
	})
	return result.([]string)
}

func (r *Resolver) informalParts(informal string, year int, depth int) []string {
	seen := make(map[string]bool)
	var parts []string
	add := func(code string) {
		if code == informal || seen[code] {
			return
		}
		seen[code] = true
		parts = append(parts, code)
	}

	for _, code := range r.src.Subordinates(informal) {
		if len(r.src.Records(code, year)) == 0 {
			continue
		}
		part, err := r.ResolveAutonomous(code, year)
		if err != nil {
			logger.Warn("Could not resolve informal part", "informal", informal, "part", code, "year", year, "err", err)
			continue
		}
		if depth < maxInformalDepth && !part.Autonomous &&
			(part.Status == "" || part.Status == common.StatusInformal) &&
			part.Entity.Code != informal {
			for _, sub := range r.informalParts(part.Entity.Code, year, depth+1) {
				add(sub)
			}
			continue
		}
		add(part.Entity.Code)
	}
	return parts
}
