package roster

import (
	"strconv"
	"strings"

	"github.com/flogvit/wikiportraits/internal/graph"
)

// Membership holds the structured tenure record extracted from one
// membership statement's qualifiers.
type Membership struct {
	// RoleIDs are the item ids of every role qualifier on the statement,
	// in input order. Both instrument (P1303) and subject-has-role (P2868)
	// qualifiers contribute.
	RoleIDs []string
	Start   *int
	End     *int
}

// ExtractMembership parses the role and time-range qualifiers of a
// membership statement. Multiple role qualifiers all contribute; only the
// first start and first end value is used when multiples exist.
func ExtractMembership(stmt graph.Statement) Membership {
	var m Membership

	for _, prop := range []string{graph.PropInstrument, graph.PropObjectRole} {
		for _, v := range stmt.Qualifiers[prop] {
			if v.Kind == graph.ValueItem && v.ID != "" {
				m.RoleIDs = append(m.RoleIDs, v.ID)
			}
		}
	}

	if values := stmt.Qualifiers[graph.PropStartTime]; len(values) > 0 {
		if year, ok := yearOf(values[0]); ok {
			m.Start = &year
		}
	}
	if values := stmt.Qualifiers[graph.PropEndTime]; len(values) > 0 {
		if year, ok := yearOf(values[0]); ok {
			m.End = &year
		}
	}

	return m
}

// Tenure returns the extracted time range, or nil when the statement
// carried no usable start or end qualifier.
func (m Membership) Tenure() *Tenure {
	if m.Start == nil && m.End == nil {
		return nil
	}
	return &Tenure{Start: m.Start, End: m.End}
}

// yearOf floor-truncates a graph time value ("+2010-00-00T00:00:00Z") to
// its year. The leading sign carries BCE dates.
func yearOf(v graph.Value) (int, bool) {
	if v.Kind != graph.ValueTime || v.Text == "" {
		return 0, false
	}

	s := strings.TrimPrefix(v.Text, "+")
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	if idx := strings.IndexAny(s, "-T"); idx > 0 {
		s = s[:idx]
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if negative {
		year = -year
	}
	return year, true
}
