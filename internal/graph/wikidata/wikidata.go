package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flogvit/wikiportraits/internal/graph"
)

const (
	defaultAPIEndpoint    = "https://www.wikidata.org/w/api.php"
	defaultSPARQLEndpoint = "https://query.wikidata.org/sparql"

	// The Action API caps wbgetentities at 50 ids per request.
	maxIDsPerLookup = 50
)

// Adapter implements the graph.Client interface against Wikidata.
type Adapter struct {
	client    *http.Client
	limiter   *graph.RateLimiterMap
	logger    *slog.Logger
	apiURL    string
	sparqlURL string
}

// New creates a Wikidata adapter with the default endpoints.
func New(limiter *graph.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithEndpoints(limiter, logger, defaultAPIEndpoint, defaultSPARQLEndpoint)
}

// NewWithEndpoints creates a Wikidata adapter with custom endpoints (for testing).
func NewWithEndpoints(limiter *graph.RateLimiterMap, logger *slog.Logger, apiURL, sparqlURL string) *Adapter {
	return &Adapter{
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   limiter,
		logger:    logger.With(slog.String("component", "wikidata")),
		apiURL:    strings.TrimRight(apiURL, "/"),
		sparqlURL: strings.TrimRight(sparqlURL, "/"),
	}
}

// SetTimeout overrides the default per-request timeout. Zero and negative
// values are ignored.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// LookupEntities fetches full entities for the given ids, batching into as
// few wbgetentities calls as the API allows. Ids marked missing by the
// service are omitted from the result.
func (a *Adapter) LookupEntities(ctx context.Context, ids []string, languages []string, props []string) (map[string]*graph.Entity, error) {
	result := make(map[string]*graph.Entity, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += maxIDsPerLookup {
		end := start + maxIDsPerLookup
		if end > len(ids) {
			end = len(ids)
		}
		if err := a.lookupBatch(ctx, ids[start:end], languages, props, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (a *Adapter) lookupBatch(ctx context.Context, ids []string, languages []string, props []string, out map[string]*graph.Entity) error {
	params := url.Values{
		"action": {"wbgetentities"},
		"format": {"json"},
		"ids":    {strings.Join(ids, "|")},
	}
	if len(languages) > 0 {
		params.Set("languages", strings.Join(languages, "|"))
	}
	if len(props) > 0 {
		params.Set("props", strings.Join(props, "|"))
	}

	body, err := a.doRequest(ctx, graph.EndpointAction, a.apiURL+"?"+params.Encode(), "lookup")
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &graph.ErrGraphUnavailable{Op: "lookup", Cause: fmt.Errorf("parsing response: %w", err)}
	}
	if resp.Error != nil {
		return &graph.ErrGraphUnavailable{Op: "lookup", Cause: fmt.Errorf("api error %s: %s", resp.Error.Code, resp.Error.Info)}
	}

	for id, raw := range resp.Entities {
		if raw.Missing != nil {
			continue
		}
		e := convertEntity(raw)
		if e.ID == "" {
			e.ID = id
		}
		out[e.ID] = e
	}

	return nil
}

// SearchEntities runs a wbsearchentities prefix search for items.
func (a *Adapter) SearchEntities(ctx context.Context, query string, limit int, language string) ([]graph.SearchResult, error) {
	if language == "" {
		language = "en"
	}
	params := url.Values{
		"action":   {"wbsearchentities"},
		"format":   {"json"},
		"type":     {"item"},
		"search":   {query},
		"language": {language},
		"limit":    {fmt.Sprintf("%d", limit)},
	}

	body, err := a.doRequest(ctx, graph.EndpointAction, a.apiURL+"?"+params.Encode(), "search")
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &graph.ErrGraphUnavailable{Op: "search", Cause: fmt.Errorf("parsing response: %w", err)}
	}
	if resp.Error != nil {
		return nil, &graph.ErrGraphUnavailable{Op: "search", Cause: fmt.Errorf("api error %s: %s", resp.Error.Code, resp.Error.Info)}
	}

	results := make([]graph.SearchResult, 0, len(resp.Search))
	for _, hit := range resp.Search {
		if hit.ID == "" {
			continue
		}
		results = append(results, graph.SearchResult{
			ID:          hit.ID,
			Label:       hit.Label,
			Description: hit.Description,
		})
	}
	return results, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, ep graph.Endpoint, reqURL, op string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, ep); err != nil {
		return nil, &graph.ErrGraphUnavailable{Op: op, Cause: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &graph.ErrGraphUnavailable{Op: op, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &graph.ErrGraphUnavailable{Op: op, Cause: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &graph.ErrGraphUnavailable{Op: op, Cause: fmt.Errorf("reading response: %w", err)}
	}
	return body, nil
}

func userAgent() string {
	return "WikiPortraits/1.0 (https://github.com/flogvit/wikiportraits)"
}
