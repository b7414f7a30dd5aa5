package tradegraph

import (
	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/gph"
)

const (
	firstYear = 1845
	lastYear  = 1855
)

func steady(status common.StatusKind, sovereign string) map[int][]common.StatusRecord {
	years := make(map[int][]common.StatusRecord)
	for y := firstYear; y <= lastYear; y++ {
		years[y] = []common.StatusRecord{{Status: status, Sovereign: sovereign}}
	}
	return years
}

func testEntities() []common.GPHEntity {
	return []common.GPHEntity{
		{Code: "UK", Name: "United Kingdom", Continent: "Europe"},
		{Code: "FR", Name: "France", Continent: "Europe"},
		{Code: "BI", Name: "British India", Continent: "Asia"},
		{Code: "DK", Name: "Denmark", Continent: "Europe"},
		{Code: "SE", Name: "Sweden", Continent: "Europe"},
		{Code: "NO", Name: "Norway", Continent: "Europe"},
		{Code: "EG", Name: "Egypt", Continent: "Africa"},
		{Code: "GH", Name: "Gold Coast", Continent: "Africa"},
		{Code: "SN", Name: "Senegal", Continent: "Africa"},
		{Code: "LEV", Name: "Levant", Continent: "Asia"},
		{Code: "SYR", Name: "Syria", Continent: "Asia"},
		{Code: "LEB", Name: "Lebanon", Continent: "Asia"},
	}
}

func testStatuses() map[string]map[int][]common.StatusRecord {
	return map[string]map[int][]common.StatusRecord{
		"UK":  steady(common.StatusSovereign, ""),
		"FR":  steady(common.StatusSovereign, ""),
		"BI":  steady(common.StatusColonyOf, "UK"),
		"DK":  steady(common.StatusSovereign, ""),
		"SE":  steady(common.StatusSovereign, ""),
		"NO":  steady(common.StatusSovereign, ""),
		"EG":  steady(common.StatusColonyOf, "UK"),
		"GH":  steady(common.StatusColonyOf, "UK"),
		"SN":  steady(common.StatusColonyOf, "FR"),
		"LEV": steady(common.StatusInformal, ""),
		"SYR": steady(common.StatusSovereign, ""),
		"LEB": steady(common.StatusSovereign, ""),
	}
}

func gphUnit(name, code string) common.RICEntity {
	return common.RICEntity{Name: name, Kind: common.RICGPHEntity, GPHCode: code}
}

func testReference() *Reference {
	units := []common.RICEntity{
		gphUnit("United Kingdom", "UK"),
		gphUnit("France", "FR"),
		gphUnit("British India", "BI"),
		gphUnit("Denmark", "DK"),
		gphUnit("Sweden", "SE"),
		gphUnit("Norway", "NO"),
		gphUnit("Egypt", "EG"),
		gphUnit("Senegal", "SN"),
		gphUnit("Levant", "LEV"),
		gphUnit("Syria", "SYR"),
		gphUnit("Lebanon", "LEB"),
		{Name: "Bombay", Kind: common.RICLocality, Parent: "British India"},
		{Name: "Madras", Kind: common.RICLocality, Parent: "British India"},
		{Name: "Scandinavia", Kind: common.RICGroup},
		{Name: "Sweden and Norway", Kind: common.RICGroup},
		{Name: "British Africa", Kind: common.RICColonialArea, Parent: "United Kingdom"},
		{Name: "Nordic", Kind: common.RICGeographicalArea},
	}
	ref := &Reference{
		Units: make(map[string]common.RICEntity),
		Groups: map[string][]string{
			"Scandinavia":       {"Denmark", "Sweden", "Norway"},
			"Sweden and Norway": {"Sweden", "Norway"},
		},
		Areas: map[string][]common.AreaMember{
			"Nordic": {{GPHCode: "DK"}, {GPHCode: "SE"}},
		},
		Colonial: map[string]common.ColonialArea{
			"British Africa": {Name: "British Africa", Geography: "Africa", Continental: true},
		},
		Informal: map[string][]common.InformalPart{
			"LEV": {
				{Code: "SYR", From: 1840, To: 1860},
				{Code: "LEB", From: 1840},
				{Code: "EG", To: 1800},
			},
		},
	}
	for _, u := range units {
		ref.Units[u.Name] = u
	}
	return ref
}

func testBuilder(statuses map[string]map[int][]common.StatusRecord) *Builder {
	if statuses == nil {
		statuses = testStatuses()
	}
	resolver := gph.NewResolver(gph.NewDataset(testEntities(), statuses), nil)
	return NewBuilder(resolver, testReference())
}

func export(year int, reporter, partner string, flow float64) common.TradeRow {
	return common.TradeRow{Year: year, Reporter: reporter, Partner: partner, Flow: flow, Unit: 1, Rate: 1, Direction: common.Export}
}

func imports(year int, reporter, partner string, flow float64) common.TradeRow {
	return common.TradeRow{Year: year, Reporter: reporter, Partner: partner, Flow: flow, Unit: 1, Rate: 1, Direction: common.Import}
}

// scandinaviaRows reports France's trade with Scandinavian countries, first
// grouped then separately.
func scandinaviaRows() map[int][]common.TradeRow {
	return map[int][]common.TradeRow{
		1849: {
			export(1849, "France", "Denmark", 100),
			export(1849, "France", "Sweden and Norway", 200),
		},
		1850: {
			export(1850, "France", "Scandinavia", 900),
		},
		1851: {
			export(1851, "France", "Sweden", 50),
			export(1851, "France", "Norway", 150),
		},
	}
}

func value(t interface{ Helper() }, v *float64) float64 {
	t.Helper()
	if v == nil {
		return -1
	}
	return *v
}
