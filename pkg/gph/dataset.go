package gph

import (
	"slices"
	"sort"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
)

// StatusSource is the read-only status reference the resolver works on.
type StatusSource interface {
	Entity(code string) (common.GPHEntity, bool)
	Entities() []common.GPHEntity
	// Records returns the status records of code in year, in dataset order.
	Records(code string, year int) []common.StatusRecord
	// YearRange returns the first and last year holding any record.
	YearRange() (int, int)
	// Subordinates returns the codes that were at some point "Part of" or
	// "Dissolved into" code.
	Subordinates(code string) []string
}

// Dataset is an in-memory StatusSource built from the GeoPolHist tables.
type Dataset struct {
	entities     map[string]common.GPHEntity
	order        []string
	statuses     map[string]map[int][]common.StatusRecord
	subordinates map[string][]string
	minYear      int
	maxYear      int
}

// NewDataset indexes entities and their yearly statuses. Statuses for codes
// missing from entities are kept: the resolver reports them as unknown when
// it reaches them.
func NewDataset(entities []common.GPHEntity, statuses map[string]map[int][]common.StatusRecord) *Dataset {
	d := &Dataset{
		entities:     make(map[string]common.GPHEntity, len(entities)),
		order:        make([]string, 0, len(entities)),
		statuses:     statuses,
		subordinates: make(map[string][]string),
	}
	if d.statuses == nil {
		d.statuses = make(map[string]map[int][]common.StatusRecord)
	}
	for _, e := range entities {
		if _, ok := d.entities[e.Code]; !ok {
			d.order = append(d.order, e.Code)
		}
		d.entities[e.Code] = e
	}

	first := true
	codes := make([]string, 0, len(d.statuses))
	for code := range d.statuses {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		seen := make(map[string]bool)
		for year, records := range d.statuses[code] {
			if first || year < d.minYear {
				d.minYear = year
			}
			if first || year > d.maxYear {
				d.maxYear = year
			}
			first = false
			for _, r := range records {
				if r.Sovereign == "" || seen[r.Sovereign] {
					continue
				}
				if r.Status == common.StatusPartOf || r.Status == common.StatusDissolvedInto {
					seen[r.Sovereign] = true
					d.subordinates[r.Sovereign] = append(d.subordinates[r.Sovereign], code)
				}
			}
		}
	}
	for sovereign := range d.subordinates {
		slices.Sort(d.subordinates[sovereign])
	}
	return d
}

func (d *Dataset) Entity(code string) (common.GPHEntity, bool) {
	e, ok := d.entities[code]
	return e, ok
}

// Entities returns every entity in load order.
func (d *Dataset) Entities() []common.GPHEntity {
	out := make([]common.GPHEntity, 0, len(d.order))
	for _, code := range d.order {
		out = append(out, d.entities[code])
	}
	return out
}

func (d *Dataset) Records(code string, year int) []common.StatusRecord {
	years, ok := d.statuses[code]
	if !ok {
		return nil
	}
	return years[year]
}

func (d *Dataset) YearRange() (int, int) {
	return d.minYear, d.maxYear
}

func (d *Dataset) Subordinates(code string) []string {
	return d.subordinates[code]
}
