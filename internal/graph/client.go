package graph

import "context"

// Client is the read-only contract against the external knowledge graph.
// All operations are idempotent reads. Implementations surface transport
// failures, non-success responses, and malformed payloads as
// *ErrGraphUnavailable; callers must not treat that as "no results".
type Client interface {
	// LookupEntities fetches full entities for a set of ids in as few
	// round trips as the backend allows. Ids the graph does not know are
	// absent from the result map; an empty input yields an empty map.
	LookupEntities(ctx context.Context, ids []string, languages []string, props []string) (map[string]*Entity, error)

	// SearchEntities runs a free-text prefix search, returning at most
	// limit results.
	SearchEntities(ctx context.Context, query string, limit int, language string) ([]SearchResult, error)

	// ReverseLookup runs a graph-pattern query matching humans whose
	// predicate property equals objectID, pulling label, instrument,
	// birth date, nationality, image, and Wikipedia link per row in a
	// single query.
	ReverseLookup(ctx context.Context, predicate, objectID string) ([]MemberRow, error)
}
