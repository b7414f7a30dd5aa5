package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/gph"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/loader/csv"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/go-playground/validator"
	"golang.org/x/sync/errgroup"
)

// FileLoader defines the interface for reading reference files.
// Implementations may load files from disk, cloud storage, or other sources.
type FileLoader interface {
	GetFileText(ctx context.Context, path string) ([]byte, error)
}

// Paths locates the reference tables relative to a FileLoader root.
// Informal is optional: without it informal parts are derived from the
// status dataset.
type Paths struct {
	Entities    string
	Statuses    string
	RICEntities string
	RICGroups   string
	Areas       string
	Colonial    string
	Informal    string
}

// DefaultPaths returns the file names used by the GeoPolHist and RICardo
// data repositories.
func DefaultPaths() Paths {
	return Paths{
		Entities:    "GeoPolHist_entities.csv",
		Statuses:    "GeoPolHist_entities_extended.json",
		RICEntities: "RICentities.csv",
		RICGroups:   "RICentities_groups.csv",
		Areas:       "GPH_geographical_area.csv",
		Colonial:    "RICardo_colonial_to_geographical_area.csv",
		Informal:    "GPH_informal_parts.csv",
	}
}

// Tables holds every reference table needed to build year graphs.
type Tables struct {
	Entities []common.GPHEntity
	Statuses map[string]map[int][]common.StatusRecord
	Units    []common.RICEntity
	Groups   map[string][]string
	Areas    map[string][]common.AreaMember
	Colonial map[string]common.ColonialArea
	Informal map[string][]common.InformalPart
}

// Dataset indexes the GeoPolHist tables for the sovereignty resolver.
func (t *Tables) Dataset() *gph.Dataset {
	return gph.NewDataset(t.Entities, t.Statuses)
}

// Reference returns the RIC tables in the form the graph builder consumes.
func (t *Tables) Reference() *tradegraph.Reference {
	units := make(map[string]common.RICEntity, len(t.Units))
	for _, u := range t.Units {
		units[u.Name] = u
	}
	return &tradegraph.Reference{
		Units:    units,
		Groups:   t.Groups,
		Areas:    t.Areas,
		Colonial: t.Colonial,
		Informal: t.Informal,
	}
}

// Load reads every table of paths through fl. Tables are read concurrently;
// the first failing table aborts the load.
func Load(ctx context.Context, fl FileLoader, paths Paths) (*Tables, error) {
	t := &Tables{}
	v := validator.New()

	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		t.Entities, err = loadEntities(gCtx, fl, paths.Entities, v)
		return err
	})
	eg.Go(func() (err error) {
		t.Statuses, err = loadStatuses(gCtx, fl, paths.Statuses)
		return err
	})
	eg.Go(func() (err error) {
		t.Units, err = loadUnits(gCtx, fl, paths.RICEntities, v)
		return err
	})
	eg.Go(func() (err error) {
		t.Groups, err = loadGroups(gCtx, fl, paths.RICGroups)
		return err
	})
	eg.Go(func() (err error) {
		t.Areas, err = loadAreas(gCtx, fl, paths.Areas, v)
		return err
	})
	eg.Go(func() (err error) {
		t.Colonial, err = loadColonial(gCtx, fl, paths.Colonial, v)
		return err
	})
	if paths.Informal != "" {
		eg.Go(func() (err error) {
			t.Informal, err = loadInformal(gCtx, fl, paths.Informal, v)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	gaps := t.Check()
	logger.Info("[Loader] Reference loaded",
		"entities", len(t.Entities),
		"statuses", len(t.Statuses),
		"units", len(t.Units),
		"groups", len(t.Groups),
		"areas", len(t.Areas),
		"colonial", len(t.Colonial),
		"informal", len(t.Informal),
		"gaps", gaps,
	)
	return t, nil
}

func readRecords(ctx context.Context, fl FileLoader, path string, required ...string) ([]csv.Record, error) {
	content, err := fl.GetFileText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	records, err := csv.ParseRecords(content, required...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

func invalidRow(path string, row int, err error) error {
	return fmt.Errorf("%s row %d: %w", path, row+2, err)
}

func loadEntities(ctx context.Context, fl FileLoader, path string, v *validator.Validate) ([]common.GPHEntity, error) {
	records, err := readRecords(ctx, fl, path, "GPH_code", "GPH_name", "continent")
	if err != nil {
		return nil, err
	}
	entities := make([]common.GPHEntity, 0, len(records))
	for i, rec := range records {
		e := common.GPHEntity{
			Code:      rec.Get("GPH_code"),
			Name:      rec.Get("GPH_name"),
			Continent: common.Continent(rec.Get("continent")),
			Notes:     rec.Get("notes"),
		}
		for _, col := range []string{"wikidata", "wikidata_alt1", "wikidata_alt2", "wikidata_alt3"} {
			if id := rec.Get(col); id != "" {
				e.Wikidata = append(e.Wikidata, id)
			}
		}
		if err := v.Struct(e); err != nil {
			return nil, invalidRow(path, i, err)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

type statusEntry struct {
	Name  string                           `json:"name"`
	Years map[string][]common.StatusRecord `json:"years"`
}

func loadStatuses(ctx context.Context, fl FileLoader, path string) (map[string]map[int][]common.StatusRecord, error) {
	content, err := fl.GetFileText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var raw map[string]statusEntry
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	statuses := make(map[string]map[int][]common.StatusRecord, len(raw))
	for code, entry := range raw {
		years := make(map[int][]common.StatusRecord, len(entry.Years))
		for key, records := range entry.Years {
			year, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%s: entity %s has invalid year %q", path, code, key)
			}
			years[year] = records
		}
		statuses[code] = years
	}
	return statuses, nil
}

func loadUnits(ctx context.Context, fl FileLoader, path string, v *validator.Validate) ([]common.RICEntity, error) {
	records, err := readRecords(ctx, fl, path, "RICname", "type")
	if err != nil {
		return nil, err
	}
	units := make([]common.RICEntity, 0, len(records))
	for i, rec := range records {
		u := common.RICEntity{
			Name:    rec.Get("RICname"),
			Kind:    common.RICKind(rec.Get("type")),
			Parent:  rec.Get("parent_entity"),
			GPHCode: rec.Get("GPH_code"),
		}
		if err := v.Struct(u); err != nil {
			return nil, invalidRow(path, i, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func loadGroups(ctx context.Context, fl FileLoader, path string) (map[string][]string, error) {
	records, err := readRecords(ctx, fl, path, "RICname_group", "RICname_part")
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]string)
	for i, rec := range records {
		group, part := rec.Get("RICname_group"), rec.Get("RICname_part")
		if group == "" || part == "" {
			return nil, invalidRow(path, i, fmt.Errorf("group and part are required"))
		}
		groups[group] = append(groups[group], part)
	}
	return groups, nil
}

func loadAreas(ctx context.Context, fl FileLoader, path string, v *validator.Validate) (map[string][]common.AreaMember, error) {
	records, err := readRecords(ctx, fl, path, "GPH_code", "RICname")
	if err != nil {
		return nil, err
	}
	areas := make(map[string][]common.AreaMember)
	for i, rec := range records {
		m := common.AreaMember{
			GPHCode:   rec.Get("GPH_code"),
			Name:      rec.Get("GPH_name"),
			Continent: common.Continent(rec.Get("continent")),
		}
		if err := v.Struct(m); err != nil {
			return nil, invalidRow(path, i, err)
		}
		area := rec.Get("RICname")
		areas[area] = append(areas[area], m)
	}
	return areas, nil
}

func loadColonial(ctx context.Context, fl FileLoader, path string, v *validator.Validate) (map[string]common.ColonialArea, error) {
	records, err := readRecords(ctx, fl, path, "RICname", "geographical_area")
	if err != nil {
		return nil, err
	}
	colonial := make(map[string]common.ColonialArea, len(records))
	for i, rec := range records {
		c := common.ColonialArea{
			Name:        rec.Get("RICname"),
			Geography:   rec.Get("geographical_area"),
			Continental: strings.EqualFold(rec.Get("continental"), "yes"),
		}
		if err := v.Struct(c); err != nil {
			return nil, invalidRow(path, i, err)
		}
		colonial[c.Name] = c
	}
	return colonial, nil
}

func loadInformal(ctx context.Context, fl FileLoader, path string, v *validator.Validate) (map[string][]common.InformalPart, error) {
	records, err := readRecords(ctx, fl, path, "informal_GPH_code", "GPH_code")
	if err != nil {
		return nil, err
	}
	informal := make(map[string][]common.InformalPart)
	for i, rec := range records {
		from, err := optionalYear(rec.Get("start_year"))
		if err != nil {
			return nil, invalidRow(path, i, err)
		}
		to, err := optionalYear(rec.Get("end_year"))
		if err != nil {
			return nil, invalidRow(path, i, err)
		}
		p := common.InformalPart{Code: rec.Get("GPH_code"), From: from, To: to}
		if err := v.Struct(p); err != nil {
			return nil, invalidRow(path, i, err)
		}
		code := rec.Get("informal_GPH_code")
		if code == "" {
			return nil, invalidRow(path, i, fmt.Errorf("informal code is required"))
		}
		informal[code] = append(informal[code], p)
	}
	return informal, nil
}

func optionalYear(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return year, nil
}

// Check logs dangling references between the tables and returns how many
// were found. Dangling references are data-quality gaps: the builder skips
// the affected relationship.
func (t *Tables) Check() int {
	units := make(map[string]bool, len(t.Units))
	for _, u := range t.Units {
		units[u.Name] = true
	}
	codes := make(map[string]bool, len(t.Entities))
	for _, e := range t.Entities {
		codes[e.Code] = true
	}

	gaps := 0
	for _, u := range t.Units {
		if u.Parent != "" && !units[u.Parent] {
			logger.Warn("[Loader] Unknown parent", "unit", u.Name, "parent", u.Parent)
			gaps++
		}
		if u.GPHCode != "" && !codes[u.GPHCode] {
			logger.Warn("[Loader] Unknown GPH code", "unit", u.Name, "code", u.GPHCode)
			gaps++
		}
	}
	for _, group := range slices.Sorted(maps.Keys(t.Groups)) {
		for _, part := range t.Groups[group] {
			if !units[part] {
				logger.Warn("[Loader] Unknown group part", "group", group, "part", part)
				gaps++
			}
		}
	}
	return gaps
}
