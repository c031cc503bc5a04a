package roster

// Merge combines performer lists arriving from different retrieval paths
// into one canonical, deduplicated list. The dedup key is the external id
// when present, else the local id. Colliding entries union their
// multi-valued fields preserving first-seen order; scalar fields keep
// whichever side is non-empty, preferring incoming on conflict so that
// manual edits can override stale resolver output.
//
// Merge is pure and order-stable: the same two input lists always yield
// the same output list, and merging the same incoming list twice is a
// no-op the second time.
func Merge(existing, incoming []Performer) []Performer {
	out := make([]Performer, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing))

	for _, p := range existing {
		key := p.Key()
		if key == "" {
			continue
		}
		if at, ok := index[key]; ok {
			out[at] = mergeOne(out[at], p)
			continue
		}
		index[key] = len(out)
		out = append(out, clone(p))
	}

	for _, p := range incoming {
		key := p.Key()
		if key == "" {
			continue
		}
		if at, ok := index[key]; ok {
			out[at] = mergeOne(out[at], p)
			continue
		}
		index[key] = len(out)
		out = append(out, clone(p))
	}

	return out
}

func mergeOne(base, incoming Performer) Performer {
	base.Instruments = unionStrings(base.Instruments, incoming.Instruments)

	if incoming.Name != "" {
		base.Name = incoming.Name
	}
	if incoming.Description != "" {
		base.Description = incoming.Description
	}
	if incoming.Nationality != "" {
		base.Nationality = incoming.Nationality
	}
	if incoming.BirthDate != "" {
		base.BirthDate = incoming.BirthDate
	}
	if incoming.ImageURL != "" {
		base.ImageURL = incoming.ImageURL
	}
	if incoming.WikipediaURL != "" {
		base.WikipediaURL = incoming.WikipediaURL
	}
	if incoming.Tenure != nil {
		t := *incoming.Tenure
		base.Tenure = &t
	}
	if incoming.ID != "" {
		base.ID = incoming.ID
	}
	if incoming.LocalID != "" && base.LocalID == "" {
		base.LocalID = incoming.LocalID
	}
	if incoming.Provenance == ProvenanceResolved {
		base.Provenance = ProvenanceResolved
	}

	return base
}

func clone(p Performer) Performer {
	if p.Instruments != nil {
		p.Instruments = append([]string(nil), p.Instruments...)
	}
	if p.Tenure != nil {
		t := *p.Tenure
		p.Tenure = &t
	}
	return p
}

// unionStrings appends items from b not already in a, preserving
// first-seen order.
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range b {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
