package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/flogvit/wikiportraits/internal/graph"
	"github.com/flogvit/wikiportraits/internal/roster"
)

// Options tunes the search layer.
type Options struct {
	// MinQueryLength is the shortest query that is dispatched at all.
	MinQueryLength int
	// Debounce is the quiet period input must hold before a query is sent.
	Debounce time.Duration
	// Limit caps the number of raw hits requested from the graph.
	Limit int
	Language string
	// Relevant restricts debounced results to humans and musical groups.
	Relevant bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MinQueryLength: 2,
		Debounce:       300 * time.Millisecond,
		Limit:          10,
		Language:       "en",
	}
}

// Result is the outcome of one search. Failed marks "could not search",
// which presentation must keep distinct from "no matches".
type Result struct {
	Query      string             `json:"query"`
	Seq        uint64             `json:"seq"`
	Performers []roster.Performer `json:"performers"`
	Failed     bool               `json:"failed,omitempty"`
}

// ExcludeFunc reports the external ids already present in the active
// roster; matching hits are filtered out of search results.
type ExcludeFunc func() map[string]bool

// ApplyFunc receives debounced results that survived the staleness guard.
type ApplyFunc func(Result)

// Searcher runs incremental, debounced free-text searches against the
// graph. Every dispatched query carries a monotonically increasing
// sequence number; a result is applied only if its sequence is the
// latest issued, so a slow in-flight request can never clobber a newer
// one.
type Searcher struct {
	client  graph.Client
	exclude ExcludeFunc
	apply   ApplyFunc
	logger  *slog.Logger
	opts    Options

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	ctx     context.Context
	seq     uint64
	applied uint64
}

// NewSearcher creates a search layer. exclude and apply may be nil for
// callers that only use the synchronous Search path.
func NewSearcher(client graph.Client, exclude ExcludeFunc, apply ApplyFunc, logger *slog.Logger, opts Options) *Searcher {
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = 2
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Searcher{
		client:  client,
		exclude: exclude,
		apply:   apply,
		logger:  logger.With(slog.String("component", "search")),
		opts:    opts,
	}
}

// Submit feeds one keystroke's worth of query text into the debouncer.
// Nothing is dispatched until the input has been stable for the quiet
// period and has reached the minimum length. It serves in-process callers
// that stream per-keystroke input and receive results via the apply
// callback; the HTTP layer uses the synchronous Search instead.
func (s *Searcher) Submit(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len([]rune(query)) < s.opts.MinQueryLength {
		// Too short: drop any scheduled dispatch as well, the user has
		// erased below the threshold.
		if s.timer != nil {
			s.timer.Stop()
		}
		s.pending = ""
		return
	}

	s.pending = query
	s.ctx = ctx
	if s.timer == nil {
		s.timer = time.AfterFunc(s.opts.Debounce, s.fire)
	} else {
		s.timer.Reset(s.opts.Debounce)
	}
}

// fire runs after the quiet period with the latest pending query.
func (s *Searcher) fire() {
	s.mu.Lock()
	query := s.pending
	ctx := s.ctx
	if query == "" {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	result := s.run(ctx, query, s.opts.Relevant)
	result.Seq = seq

	s.mu.Lock()
	latest := seq == s.seq && seq > s.applied
	if latest {
		s.applied = seq
	}
	s.mu.Unlock()

	if !latest {
		s.logger.Debug("discarding stale search result",
			slog.String("query", query), slog.Uint64("seq", seq))
		return
	}
	if s.apply != nil {
		s.apply(result)
	}
}

// Search runs one query synchronously, bypassing the debouncer. Queries
// below the minimum length yield an empty, non-failed result.
func (s *Searcher) Search(ctx context.Context, query string, relevant bool) Result {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < s.opts.MinQueryLength {
		return Result{Query: query, Performers: []roster.Performer{}}
	}
	return s.run(ctx, query, relevant)
}

func (s *Searcher) run(ctx context.Context, query string, relevant bool) Result {
	result := Result{Query: query, Performers: []roster.Performer{}}

	hits, err := s.client.SearchEntities(ctx, query, s.opts.Limit, s.opts.Language)
	if err != nil {
		var unavailable *graph.ErrGraphUnavailable
		if !errors.As(err, &unavailable) {
			s.logger.Error("unexpected search error", slog.String("error", err.Error()))
		} else {
			s.logger.Warn("search unavailable", slog.String("query", query), slog.String("error", err.Error()))
		}
		result.Failed = true
		return result
	}

	excluded := map[string]bool{}
	if s.exclude != nil {
		excluded = s.exclude()
	}

	kept := hits[:0:0]
	for _, hit := range hits {
		if excluded[hit.ID] {
			continue
		}
		kept = append(kept, hit)
	}

	if relevant {
		kept = s.filterRelevant(ctx, kept)
	}

	for _, hit := range kept {
		result.Performers = append(result.Performers, roster.Performer{
			ID:          hit.ID,
			Name:        hit.Label,
			Description: hit.Description,
			Provenance:  roster.ProvenanceResolved,
		})
	}
	return result
}

// filterRelevant keeps hits classified as human or musical group by
// their P31 statements. When classification data cannot be fetched the
// raw hits are returned unfiltered: degraded results beat silently
// dropped ones.
func (s *Searcher) filterRelevant(ctx context.Context, hits []graph.SearchResult) []graph.SearchResult {
	if len(hits) == 0 {
		return hits
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}

	entities, err := s.client.LookupEntities(ctx, ids, []string{s.opts.Language}, []string{"claims"})
	if err != nil {
		s.logger.Warn("relevance classification unavailable, returning raw results",
			slog.String("error", err.Error()))
		return hits
	}

	kept := hits[:0:0]
	for _, hit := range hits {
		e, ok := entities[hit.ID]
		if !ok || len(e.Claims[graph.PropInstanceOf]) == 0 {
			// No classification data: keep rather than silently drop.
			kept = append(kept, hit)
			continue
		}
		if e.IsInstanceOf(graph.TypeHuman, graph.TypeMusicalGroup, graph.TypeRockBand, graph.TypeMusicalDuo) {
			kept = append(kept, hit)
		}
	}
	return kept
}
