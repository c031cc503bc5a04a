package graph

// Wikidata property and item identifiers the engine relies on.
const (
	PropInstanceOf  = "P31"   // instance of
	PropCitizenship = "P27"   // country of citizenship
	PropImage       = "P18"   // image
	PropMemberOf    = "P463"  // member of
	PropHasPart     = "P527"  // has part(s)
	PropBirthDate   = "P569"  // date of birth
	PropStartTime   = "P580"  // start time
	PropEndTime     = "P582"  // end time
	PropInstrument  = "P1303" // instrument
	PropObjectRole  = "P2868" // subject has role

	TypeHuman        = "Q5"
	TypeMusicalGroup = "Q215380"
	TypeRockBand     = "Q5741069"
	TypeMusicalDuo   = "Q9212979"
)

// ValueKind classifies a claim or qualifier value.
type ValueKind string

// Known value kinds. Anything the adapter cannot classify is dropped at
// the boundary rather than carried inward as an unknown blob.
const (
	ValueItem   ValueKind = "item"
	ValueTime   ValueKind = "time"
	ValueString ValueKind = "string"
)

// Value is one strongly-typed claim or qualifier value.
type Value struct {
	Kind ValueKind `json:"kind"`
	// ID holds the target entity id when Kind is ValueItem.
	ID string `json:"id,omitempty"`
	// Text holds the raw value for ValueTime ("+1969-05-10T00:00:00Z")
	// and ValueString kinds.
	Text string `json:"text,omitempty"`
}

// Statement is a single property-value assertion on an entity, optionally
// narrowed by qualifiers (property id -> ordered value list).
type Statement struct {
	Property   string             `json:"property"`
	Value      Value              `json:"value"`
	Qualifiers map[string][]Value `json:"qualifiers,omitempty"`
	Rank       string             `json:"rank,omitempty"`
}

// Entity is the canonical representation of anything retrieved from the
// external knowledge graph. An entity with a non-empty ID is immutable
// with respect to that ID; attributes may be enriched in place but the
// identifier never changes once assigned by the graph.
type Entity struct {
	ID           string                 `json:"id"`
	Labels       map[string]string      `json:"labels,omitempty"`
	Descriptions map[string]string      `json:"descriptions,omitempty"`
	Claims       map[string][]Statement `json:"claims,omitempty"`
	Sitelinks    map[string]string      `json:"sitelinks,omitempty"`
}

// Label returns the entity label for the given language, falling back to
// English and then to any available language.
func (e *Entity) Label(lang string) string {
	if v, ok := e.Labels[lang]; ok {
		return v
	}
	if v, ok := e.Labels["en"]; ok {
		return v
	}
	for _, v := range e.Labels {
		return v
	}
	return ""
}

// ClaimValues returns the ordered values of all statements for a property.
func (e *Entity) ClaimValues(property string) []Value {
	stmts := e.Claims[property]
	values := make([]Value, 0, len(stmts))
	for _, s := range stmts {
		values = append(values, s.Value)
	}
	return values
}

// IsInstanceOf reports whether any P31 statement targets one of the given
// item ids.
func (e *Entity) IsInstanceOf(typeIDs ...string) bool {
	for _, v := range e.ClaimValues(PropInstanceOf) {
		if v.Kind != ValueItem {
			continue
		}
		for _, id := range typeIDs {
			if v.ID == id {
				return true
			}
		}
	}
	return false
}

// SearchResult is a single hit from an incremental entity search.
type SearchResult struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// MemberRow is one row of a reverse-relationship query result. The query
// returns one row per (entity, instrument) pair; callers group rows by ID.
type MemberRow struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Instrument   string `json:"instrument,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	Nationality  string `json:"nationality,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	WikipediaURL string `json:"wikipedia_url,omitempty"`
}
