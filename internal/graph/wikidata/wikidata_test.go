package wikidata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/flogvit/wikiportraits/internal/graph"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		switch {
		case q.Get("action") == "wbgetentities":
			if strings.Contains(q.Get("ids"), "Q404") {
				w.Write([]byte(`{"entities":{"Q404":{"id":"Q404","missing":""}},"success":1}`))
				return
			}
			w.Write(loadFixture(t, "entity_band.json"))
		case q.Get("action") == "wbsearchentities":
			w.Write(loadFixture(t, "search_musicians.json"))
		case q.Get("query") != "":
			if strings.Contains(q.Get("query"), "Q404") {
				w.Write([]byte(`{"results":{"bindings":[]}}`))
				return
			}
			w.Write(loadFixture(t, "reverse_members.json"))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func newTestAdapter(t *testing.T) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := newTestServer(t)
	t.Cleanup(srv.Close)
	a := NewWithEndpoints(graph.NewRateLimiterMap(), testLogger(), srv.URL, srv.URL)
	return a, srv
}

func TestLookupEntities(t *testing.T) {
	a, _ := newTestAdapter(t)

	entities, err := a.LookupEntities(context.Background(), []string{"Q999"}, []string{"en", "de"}, nil)
	if err != nil {
		t.Fatalf("LookupEntities: %v", err)
	}

	e, ok := entities["Q999"]
	if !ok {
		t.Fatal("expected Q999 in result")
	}
	if e.Label("en") != "The Examples" {
		t.Errorf("Label(en) = %q, want %q", e.Label("en"), "The Examples")
	}
	if e.Label("de") != "Die Beispiele" {
		t.Errorf("Label(de) = %q, want %q", e.Label("de"), "Die Beispiele")
	}
	if !e.IsInstanceOf(graph.TypeMusicalGroup) {
		t.Error("expected Q999 to be a musical group")
	}
	if e.Sitelinks["enwiki"] != "The Examples" {
		t.Errorf("enwiki sitelink = %q", e.Sitelinks["enwiki"])
	}

	// The somevalue member snak must be rejected at the boundary.
	members := e.Claims[graph.PropHasPart]
	if len(members) != 2 {
		t.Fatalf("expected 2 member statements, got %d", len(members))
	}
	if members[0].Value.ID != "Q100" || members[1].Value.ID != "Q101" {
		t.Errorf("member ids = %s, %s", members[0].Value.ID, members[1].Value.ID)
	}

	quals := members[0].Qualifiers
	if got := quals[graph.PropInstrument]; len(got) != 1 || got[0].ID != "Q6607" {
		t.Errorf("instrument qualifier = %+v", got)
	}
	if got := quals[graph.PropStartTime]; len(got) != 1 || got[0].Text != "+2010-00-00T00:00:00Z" {
		t.Errorf("start qualifier = %+v", got)
	}
}

func TestLookupEntitiesMissing(t *testing.T) {
	a, _ := newTestAdapter(t)

	entities, err := a.LookupEntities(context.Background(), []string{"Q404"}, nil, nil)
	if err != nil {
		t.Fatalf("LookupEntities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected empty result for missing entity, got %d", len(entities))
	}
}

func TestLookupEntitiesEmptyInput(t *testing.T) {
	a, _ := newTestAdapter(t)

	entities, err := a.LookupEntities(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("LookupEntities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected empty map, got %d entries", len(entities))
	}
}

func TestSearchEntities(t *testing.T) {
	a, _ := newTestAdapter(t)

	results, err := a.SearchEntities(context.Background(), "jane", 10, "en")
	if err != nil {
		t.Fatalf("SearchEntities: %v", err)
	}
	// The hit with an empty id is dropped.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "Q100" || results[0].Label != "Jane Strummer" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Description != "drummer" {
		t.Errorf("second description = %q", results[1].Description)
	}
}

func TestReverseLookup(t *testing.T) {
	a, _ := newTestAdapter(t)

	rows, err := a.ReverseLookup(context.Background(), graph.PropMemberOf, "Q888")
	if err != nil {
		t.Fatalf("ReverseLookup: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].ID != "Q200" || rows[0].Instrument != "vocals" {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].ID != "Q200" || rows[1].Instrument != "guitar" {
		t.Errorf("second row = %+v", rows[1])
	}
	if rows[2].ImageURL == "" {
		t.Error("expected image URL on third row")
	}
	if rows[3].Label != "Per Hansen" {
		t.Errorf("fourth row label = %q", rows[3].Label)
	}
}

func TestReverseLookupEmpty(t *testing.T) {
	a, _ := newTestAdapter(t)

	rows, err := a.ReverseLookup(context.Background(), graph.PropMemberOf, "Q404")
	if err != nil {
		t.Fatalf("ReverseLookup: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestServerErrorIsGraphUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewWithEndpoints(graph.NewRateLimiterMap(), testLogger(), srv.URL, srv.URL)

	_, err := a.LookupEntities(context.Background(), []string{"Q1"}, nil, nil)
	var unavailable *graph.ErrGraphUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrGraphUnavailable, got %T: %v", err, err)
	}

	_, err = a.SearchEntities(context.Background(), "jane", 10, "en")
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrGraphUnavailable from search, got %T: %v", err, err)
	}
}

func TestSetTimeoutApplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"entities": {}}`))
	}))
	defer srv.Close()

	a := NewWithEndpoints(graph.NewRateLimiterMap(), testLogger(), srv.URL, srv.URL)
	a.SetTimeout(20 * time.Millisecond)

	_, err := a.LookupEntities(context.Background(), []string{"Q1"}, nil, nil)
	var unavailable *graph.ErrGraphUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrGraphUnavailable on timeout, got %T: %v", err, err)
	}

	// Zero leaves the configured timeout in place.
	a.SetTimeout(0)
	if a.client.Timeout != 20*time.Millisecond {
		t.Errorf("timeout = %v after SetTimeout(0), want 20ms", a.client.Timeout)
	}
}

func TestMalformedPayloadIsGraphUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"entities": не json`))
	}))
	defer srv.Close()

	a := NewWithEndpoints(graph.NewRateLimiterMap(), testLogger(), srv.URL, srv.URL)

	_, err := a.LookupEntities(context.Background(), []string{"Q1"}, nil, nil)
	var unavailable *graph.ErrGraphUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrGraphUnavailable, got %T: %v", err, err)
	}
}

func TestExtractQID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://www.wikidata.org/entity/Q44190", "Q44190"},
		{"Q44190", "Q44190"},
	}
	for _, tt := range tests {
		got := extractQID(tt.input)
		if got != tt.want {
			t.Errorf("extractQID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
