package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/flogvit/wikiportraits/internal/graph"
)

// ReverseLookup runs a SPARQL graph-pattern query matching humans whose
// predicate property points at objectID. One row is returned per
// (person, instrument) pair; callers group rows by person id.
func (a *Adapter) ReverseLookup(ctx context.Context, predicate, objectID string) ([]graph.MemberRow, error) {
	query := buildReverseQuery(predicate, objectID)
	bindings, err := a.executeSPARQL(ctx, query)
	if err != nil {
		return nil, err
	}

	rows := make([]graph.MemberRow, 0, len(bindings))
	for _, b := range bindings {
		id := extractQID(b.Person.Value)
		if id == "" {
			continue
		}
		rows = append(rows, graph.MemberRow{
			ID:           id,
			Label:        b.Label.Value,
			Instrument:   b.Instrument.Value,
			BirthDate:    b.Birth.Value,
			Nationality:  b.Country.Value,
			ImageURL:     b.Image.Value,
			WikipediaURL: b.Article.Value,
		})
	}
	return rows, nil
}

func (a *Adapter) executeSPARQL(ctx context.Context, query string) ([]sparqlBinding, error) {
	params := url.Values{
		"query":  {query},
		"format": {"json"},
	}

	body, err := a.doRequest(ctx, graph.EndpointSPARQL, a.sparqlURL+"?"+params.Encode(), "reverse query")
	if err != nil {
		return nil, err
	}

	var resp sparqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &graph.ErrGraphUnavailable{Op: "reverse query", Cause: fmt.Errorf("parsing SPARQL response: %w", err)}
	}
	return resp.Results.Bindings, nil
}

func buildReverseQuery(predicate, objectID string) string {
	return fmt.Sprintf(`
SELECT ?person ?personLabel ?instrumentLabel ?birth ?countryLabel ?image ?article WHERE {
  ?person wdt:%s wd:%s .
  ?person wdt:P31 wd:Q5 .
  OPTIONAL { ?person wdt:P1303 ?instrument . }
  OPTIONAL { ?person wdt:P569 ?birth . }
  OPTIONAL { ?person wdt:P27 ?country . }
  OPTIONAL { ?person wdt:P18 ?image . }
  OPTIONAL { ?article schema:about ?person ; schema:isPartOf <https://en.wikipedia.org/> . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en" . }
}`, predicate, objectID)
}

// extractQID extracts the Q-item id from a full Wikidata entity URI.
// e.g. "http://www.wikidata.org/entity/Q44190" -> "Q44190"
func extractQID(uri string) string {
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
