package roster

// Provenance tags how a performer entered the roster.
type Provenance string

// Known provenance values.
const (
	ProvenanceResolved Provenance = "resolved"
	ProvenancePending  Provenance = "pending"
)

// Tenure is an optional membership time range, floor-truncated to years.
type Tenure struct {
	Start *int `json:"start,omitempty"`
	End   *int `json:"end,omitempty"`
}

// Performer is the human-facing view over a graph entity (or a pending
// entity) used by the roster. It is derived, never stored independently:
// always re-projected from the underlying entity plus its qualifiers.
type Performer struct {
	ID           string     `json:"id,omitempty"`
	LocalID      string     `json:"local_id,omitempty"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Instruments  []string   `json:"instruments,omitempty"`
	Nationality  string     `json:"nationality,omitempty"`
	BirthDate    string     `json:"birth_date,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
	WikipediaURL string     `json:"wikipedia_url,omitempty"`
	Tenure       *Tenure    `json:"tenure,omitempty"`
	Provenance   Provenance `json:"provenance"`
}

// Key returns the dedup key: the external id when present, else the
// local id.
func (p Performer) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.LocalID
}
