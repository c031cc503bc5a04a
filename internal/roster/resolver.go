package roster

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/flogvit/wikiportraits/internal/graph"
)

// Resolution is the outcome of resolving an organization's roster.
// Partial marks that at least one retrieval strategy failed softly; an
// empty performer list with Partial unset means the organization simply
// lists no members.
type Resolution struct {
	Performers []Performer `json:"performers"`
	Partial    bool        `json:"partial,omitempty"`
}

// Resolver determines an organization's performer set against the
// external graph.
//
// Organizations model membership inconsistently in the source graph: some
// via direct composition (P527), most via reverse "member of" (P463)
// edges. Both strategies are attempted in cost order; the direct listing
// is one cheap call, the reverse query is more expensive.
type Resolver struct {
	client   graph.Client
	logger   *slog.Logger
	language string
}

// NewResolver creates a Resolver.
func NewResolver(client graph.Client, logger *slog.Logger, language string) *Resolver {
	if language == "" {
		language = "en"
	}
	return &Resolver{
		client:   client,
		logger:   logger.With(slog.String("component", "resolver")),
		language: language,
	}
}

// Resolve returns the roster for orgID. It never returns an error: any
// retrieval failure is logged, marked via Resolution.Partial, and the
// remaining strategy (if any) is attempted. Nothing is fabricated when
// both strategies come up empty.
func (r *Resolver) Resolve(ctx context.Context, orgID string) Resolution {
	performers, err := r.directListing(ctx, orgID)
	if err != nil {
		r.logger.Warn("direct listing failed, falling back to reverse query",
			slog.String("org", orgID), slog.String("error", err.Error()))
	}
	if len(performers) > 0 {
		return Resolution{Performers: performers, Partial: err != nil}
	}

	partial := err != nil

	performers, err = r.reverseQuery(ctx, orgID)
	if err != nil {
		r.logger.Warn("reverse membership query failed",
			slog.String("org", orgID), slog.String("error", err.Error()))
		partial = true
	}

	if performers == nil {
		performers = []Performer{}
	}
	return Resolution{Performers: performers, Partial: partial}
}

// directListing reads the organization's P527 statements. The member
// entities and the role/nationality labels are fetched in two further
// batched calls, issued concurrently since their id sets are disjoint.
func (r *Resolver) directListing(ctx context.Context, orgID string) ([]Performer, error) {
	langs := []string{r.language}

	orgs, err := r.client.LookupEntities(ctx, []string{orgID}, langs, []string{"labels", "claims"})
	if err != nil {
		return nil, fmt.Errorf("fetching organization: %w", err)
	}
	org, ok := orgs[orgID]
	if !ok {
		return nil, nil
	}

	statements := org.Claims[graph.PropHasPart]
	if len(statements) == 0 {
		return nil, nil
	}

	type listedMember struct {
		id         string
		membership Membership
	}

	var members []listedMember
	memberIDs := make([]string, 0, len(statements))
	labelIDs := newIDSet()
	for _, stmt := range statements {
		if stmt.Value.Kind != graph.ValueItem || stmt.Value.ID == "" {
			continue
		}
		m := ExtractMembership(stmt)
		members = append(members, listedMember{id: stmt.Value.ID, membership: m})
		memberIDs = append(memberIDs, stmt.Value.ID)
		labelIDs.add(m.RoleIDs...)
	}
	if len(members) == 0 {
		return nil, nil
	}

	var (
		entities map[string]*graph.Entity
		labels   map[string]*graph.Entity
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		entities, err = r.client.LookupEntities(gctx, memberIDs, langs, []string{"labels", "claims", "sitelinks"})
		if err != nil {
			return fmt.Errorf("fetching members: %w", err)
		}
		return nil
	})

	// Role labels only depend on qualifier ids already in hand, so this
	// batch can run alongside the member fetch.
	eg.Go(func() error {
		ids := labelIDs.slice()
		if len(ids) == 0 {
			return nil
		}
		var err error
		labels, err = r.client.LookupEntities(gctx, ids, langs, []string{"labels"})
		if err != nil {
			return fmt.Errorf("fetching role labels: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	performers := make([]Performer, 0, len(members))
	for _, m := range members {
		p := Performer{
			ID:         m.id,
			Provenance: ProvenanceResolved,
			Tenure:     m.membership.Tenure(),
		}
		for _, roleID := range m.membership.RoleIDs {
			if label, ok := labels[roleID]; ok {
				p.Instruments = appendUnique(p.Instruments, label.Label(r.language))
			}
		}
		if e, ok := entities[m.id]; ok {
			r.enrichFromEntity(&p, e)
		}
		if p.Name == "" {
			p.Name = m.id
		}
		performers = append(performers, p)
	}
	return performers, nil
}

// reverseQuery finds members through their "member of" edges. Rows are
// grouped by performer id; repeated rows for the same performer carry one
// instrument each and accumulate.
func (r *Resolver) reverseQuery(ctx context.Context, orgID string) ([]Performer, error) {
	rows, err := r.client.ReverseLookup(ctx, graph.PropMemberOf, orgID)
	if err != nil {
		return nil, fmt.Errorf("reverse membership query: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(rows))
	performers := make([]Performer, 0, len(rows))
	for _, row := range rows {
		at, ok := index[row.ID]
		if !ok {
			at = len(performers)
			index[row.ID] = at
			performers = append(performers, Performer{
				ID:           row.ID,
				Name:         row.Label,
				Nationality:  row.Nationality,
				BirthDate:    row.BirthDate,
				ImageURL:     row.ImageURL,
				WikipediaURL: row.WikipediaURL,
				Provenance:   ProvenanceResolved,
			})
		}
		if row.Instrument != "" {
			performers[at].Instruments = appendUnique(performers[at].Instruments, row.Instrument)
		}
	}
	return performers, nil
}

func (r *Resolver) enrichFromEntity(p *Performer, e *graph.Entity) {
	p.Name = e.Label(r.language)

	for _, v := range e.ClaimValues(graph.PropImage) {
		if v.Kind == graph.ValueString && v.Text != "" {
			p.ImageURL = commonsFileURL(v.Text)
			break
		}
	}
	for _, v := range e.ClaimValues(graph.PropBirthDate) {
		if v.Kind == graph.ValueTime && v.Text != "" {
			p.BirthDate = strings.TrimPrefix(v.Text, "+")
			break
		}
	}
	if title, ok := e.Sitelinks["enwiki"]; ok && title != "" {
		p.WikipediaURL = "https://en.wikipedia.org/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	}
}

// commonsFileURL turns a Commons file name claim into a direct file URL.
func commonsFileURL(name string) string {
	return "https://commons.wikimedia.org/wiki/Special:FilePath/" + url.PathEscape(strings.ReplaceAll(name, " ", "_"))
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

type idSet struct {
	order []string
	seen  map[string]bool
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]bool)}
}

func (s *idSet) add(ids ...string) {
	for _, id := range ids {
		if id == "" || s.seen[id] {
			continue
		}
		s.seen[id] = true
		s.order = append(s.order, id)
	}
}

func (s *idSet) slice() []string { return s.order }
