package common

import "slices"

// Continent is the geographical area a GPH entity belongs to.
type Continent string

// World is the pseudo-continent grouping every entity.
const World Continent = "World"

// Continents lists the continent names an area label can refer to directly.
var Continents = []Continent{
	"Adriatic",
	"Africa",
	"America",
	"Antarctic",
	"Arctic",
	"Asia",
	"Atlantic",
	"Baltic",
	"Europe",
	"Mediterranean",
	"Oceania",
	"Pacific",
	"Red Sea",
}

// IsContinent reports whether name is one of the continent names.
func IsContinent(name string) bool {
	return slices.Contains(Continents, Continent(name))
}

// GPHEntity is a historical political entity from the GeoPolHist reference
// dataset. It is immutable reference data keyed by its code.
type GPHEntity struct {
	Code      string    `json:"code" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Continent Continent `json:"continent"`
	Wikidata  []string  `json:"wikidata,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// StatusKind is the sovereignty status of an entity in a given year.
type StatusKind string

const (
	StatusDissolvedInto     StatusKind = "Dissolved into"
	StatusSovereign         StatusKind = "Sovereign"
	StatusAssociatedStateOf StatusKind = "Associated state of"
	StatusSovereignLimited  StatusKind = "Sovereign (limited)"
	StatusSovereignUnrecog  StatusKind = "Sovereign (unrecognized)"
	StatusColonyOf          StatusKind = "Colony of"
	StatusDependencyOf      StatusKind = "Dependency of"
	StatusPossessionOf      StatusKind = "Possession of"
	StatusProtectorateOf    StatusKind = "Protectorate of"
	StatusLeasedTo          StatusKind = "Leased to"
	StatusMandatedTo        StatusKind = "Mandated to"
	StatusOccupiedBy        StatusKind = "Occupied by"
	StatusVassalOf          StatusKind = "Vassal of"
	StatusClaimedBy         StatusKind = "Claimed by"
	StatusNeutralZoneOf     StatusKind = "Neutral or demilitarized zone of"
	StatusDiscovered        StatusKind = "Discovered"
	StatusPartOf            StatusKind = "Part of"
	StatusUnknown           StatusKind = "Unknown"
	StatusInformal          StatusKind = "Informal"
	StatusInternational     StatusKind = "International"
)

// StatusKinds lists every status kind of the dataset.
var StatusKinds = []StatusKind{
	StatusDissolvedInto,
	StatusSovereign,
	StatusAssociatedStateOf,
	StatusSovereignLimited,
	StatusSovereignUnrecog,
	StatusColonyOf,
	StatusDependencyOf,
	StatusPossessionOf,
	StatusProtectorateOf,
	StatusLeasedTo,
	StatusMandatedTo,
	StatusOccupiedBy,
	StatusVassalOf,
	StatusClaimedBy,
	StatusNeutralZoneOf,
	StatusDiscovered,
	StatusPartOf,
	StatusUnknown,
	StatusInformal,
	StatusInternational,
}

// IsKnown reports whether k is one of StatusKinds.
func (k StatusKind) IsKnown() bool {
	return slices.Contains(StatusKinds, k)
}

// IsAutonomousTerminal reports whether an entity with this status governs
// itself for the purpose of trade resolution. Resolution stops there.
func (k StatusKind) IsAutonomousTerminal() bool {
	switch k {
	case StatusSovereign,
		StatusAssociatedStateOf,
		StatusSovereignLimited,
		StatusSovereignUnrecog,
		StatusColonyOf,
		StatusDependencyOf,
		StatusProtectorateOf,
		StatusVassalOf:
		return true
	}
	return false
}

// StatusRecord is one status entry of an entity for a year. Sovereign is the
// GPH code of the entity the status refers to, empty when there is none.
type StatusRecord struct {
	Status    StatusKind `json:"status"`
	Sovereign string     `json:"sovereign,omitempty"`
}

// RICKind is the kind of a raw political unit as named in trade reports.
type RICKind string

const (
	RICGPHEntity        RICKind = "GPH_entity"
	RICGroup            RICKind = "group"
	RICLocality         RICKind = "locality"
	RICGeographicalArea RICKind = "geographical_area"
	RICColonialArea     RICKind = "colonial_area"
)

// IsArea reports whether the unit is a geographical or colonial area.
func (k RICKind) IsArea() bool {
	return k == RICGeographicalArea || k == RICColonialArea
}

// RICEntity is a raw political unit. Parent is the RIC name of the unit it
// belongs to (localities, colonial areas), GPHCode is set for GPH-backed units.
type RICEntity struct {
	Name    string  `json:"name" validate:"required"`
	Kind    RICKind `json:"kind" validate:"required,oneof=GPH_entity group locality geographical_area colonial_area"`
	Parent  string  `json:"parent,omitempty"`
	GPHCode string  `json:"gph_code,omitempty"`
}

// NodeID returns the graph identity of the unit: its GPH code when it has
// one, its RIC name otherwise.
func (e RICEntity) NodeID() string {
	if e.GPHCode != "" {
		return e.GPHCode
	}
	return e.Name
}

// AreaMember is a GPH entity listed as a member of a named geography.
type AreaMember struct {
	GPHCode   string    `json:"gph_code" validate:"required"`
	Name      string    `json:"name"`
	Continent Continent `json:"continent"`
}

// ColonialArea maps a colonial area RIC name to the geography it covers.
// Continental is set when the geography is a whole continent or the world.
type ColonialArea struct {
	Name        string `json:"name" validate:"required"`
	Geography   string `json:"geography" validate:"required"`
	Continental bool   `json:"continental"`
}

// InformalPart is a constituent of an informal entity, valid between From and
// To inclusive. A zero bound is open.
type InformalPart struct {
	Code string `json:"code" validate:"required"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// ValidIn reports whether the part belongs to the informal entity in year.
func (p InformalPart) ValidIn(year int) bool {
	if p.From != 0 && year < p.From {
		return false
	}
	if p.To != 0 && year > p.To {
		return false
	}
	return true
}

// Direction tells which side reported a trade row.
type Direction string

const (
	Export Direction = "Exp"
	Import Direction = "Imp"
)

// TradeRow is one raw bilateral flow as reported by Reporter about Partner.
type TradeRow struct {
	Year           int       `json:"year" validate:"required"`
	Reporter       string    `json:"reporter" validate:"required"`
	ReporterKind   RICKind   `json:"reporter_kind"`
	ReporterParent string    `json:"reporter_parent,omitempty"`
	Partner        string    `json:"partner" validate:"required"`
	PartnerKind    RICKind   `json:"partner_kind"`
	PartnerParent  string    `json:"partner_parent,omitempty"`
	Flow           float64   `json:"flow"`
	Unit           float64   `json:"unit"`
	Rate           float64   `json:"rate"`
	Direction      Direction `json:"direction" validate:"required,oneof=Exp Imp"`
}

// Value converts the reported amount into the common currency. A missing
// unit counts as 1 and a zero rate is ignored.
func (r TradeRow) Value() float64 {
	unit := r.Unit
	if unit == 0 {
		unit = 1
	}
	rate := r.Rate
	if rate == 0 {
		rate = 1
	}
	return r.Flow * unit / rate
}
