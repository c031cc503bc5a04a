package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/flogvit/wikiportraits/internal/graph"
)

type fakeClient struct {
	mu          sync.Mutex
	queries     []string
	lookupCalls int

	hits      []graph.SearchResult
	entities  map[string]*graph.Entity
	searchErr error
	lookupErr error

	// blockQuery makes SearchEntities block for that query until
	// release is closed.
	blockQuery string
	release    chan struct{}
}

func (f *fakeClient) SearchEntities(_ context.Context, query string, _ int, _ string) ([]graph.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	block := query == f.blockQuery
	f.mu.Unlock()

	if block {
		<-f.release
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.hits, nil
}

func (f *fakeClient) LookupEntities(_ context.Context, ids []string, _ []string, _ []string) (map[string]*graph.Entity, error) {
	f.mu.Lock()
	f.lookupCalls++
	f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	out := make(map[string]*graph.Entity)
	for _, id := range ids {
		if e, ok := f.entities[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (f *fakeClient) ReverseLookup(_ context.Context, _, _ string) ([]graph.MemberRow, error) {
	return nil, nil
}

func (f *fakeClient) queryLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type resultSink struct {
	mu      sync.Mutex
	results []Result
}

func (r *resultSink) apply(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *resultSink) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func TestSearchBelowMinimumLength(t *testing.T) {
	client := &fakeClient{}
	s := NewSearcher(client, nil, nil, testLogger(), DefaultOptions())

	res := s.Search(context.Background(), "a", false)
	if res.Failed || len(res.Performers) != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(client.queryLog()) != 0 {
		t.Error("query below minimum length must not be dispatched")
	}
}

func TestSearchExcludesSelected(t *testing.T) {
	client := &fakeClient{hits: []graph.SearchResult{
		{ID: "Q1", Label: "Anna"},
		{ID: "Q2", Label: "Bo"},
	}}
	exclude := func() map[string]bool { return map[string]bool{"Q1": true} }
	s := NewSearcher(client, exclude, nil, testLogger(), DefaultOptions())

	res := s.Search(context.Background(), "an", false)
	if len(res.Performers) != 1 || res.Performers[0].ID != "Q2" {
		t.Errorf("performers = %+v", res.Performers)
	}
}

func TestSearchFailureIsDistinctFromEmpty(t *testing.T) {
	client := &fakeClient{searchErr: &graph.ErrGraphUnavailable{Op: "search", Cause: errors.New("down")}}
	s := NewSearcher(client, nil, nil, testLogger(), DefaultOptions())

	res := s.Search(context.Background(), "anna", false)
	if !res.Failed {
		t.Error("expected Failed to be set")
	}
	if len(res.Performers) != 0 {
		t.Errorf("performers = %+v", res.Performers)
	}

	client.searchErr = nil
	client.hits = nil
	res = s.Search(context.Background(), "anna", false)
	if res.Failed {
		t.Error("no matches must not be marked failed")
	}
}

func TestRelevanceFilter(t *testing.T) {
	client := &fakeClient{
		hits: []graph.SearchResult{
			{ID: "Q1", Label: "a human"},
			{ID: "Q2", Label: "a building"},
			{ID: "Q3", Label: "a band"},
			{ID: "Q4", Label: "unclassified"},
		},
		entities: map[string]*graph.Entity{
			"Q1": {ID: "Q1", Claims: map[string][]graph.Statement{
				graph.PropInstanceOf: {{Value: graph.Value{Kind: graph.ValueItem, ID: graph.TypeHuman}}},
			}},
			"Q2": {ID: "Q2", Claims: map[string][]graph.Statement{
				graph.PropInstanceOf: {{Value: graph.Value{Kind: graph.ValueItem, ID: "Q41176"}}},
			}},
			"Q3": {ID: "Q3", Claims: map[string][]graph.Statement{
				graph.PropInstanceOf: {{Value: graph.Value{Kind: graph.ValueItem, ID: graph.TypeMusicalGroup}}},
			}},
		},
	}
	s := NewSearcher(client, nil, nil, testLogger(), DefaultOptions())

	res := s.Search(context.Background(), "anna", true)
	ids := make([]string, 0, len(res.Performers))
	for _, p := range res.Performers {
		ids = append(ids, p.ID)
	}
	want := []string{"Q1", "Q3", "Q4"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestRelevanceFilterFallsBackWhenClassificationUnavailable(t *testing.T) {
	client := &fakeClient{
		hits:      []graph.SearchResult{{ID: "Q1", Label: "Anna"}, {ID: "Q2", Label: "Bo"}},
		lookupErr: &graph.ErrGraphUnavailable{Op: "lookup", Cause: errors.New("down")},
	}
	s := NewSearcher(client, nil, nil, testLogger(), DefaultOptions())

	res := s.Search(context.Background(), "anna", true)
	if res.Failed {
		t.Error("fallback must not be marked failed")
	}
	if len(res.Performers) != 2 {
		t.Errorf("expected raw results on classification failure, got %+v", res.Performers)
	}
}

func TestSubmitDebouncesKeystrokes(t *testing.T) {
	client := &fakeClient{hits: []graph.SearchResult{{ID: "Q1", Label: "Anna"}}}
	sink := &resultSink{}
	opts := DefaultOptions()
	opts.Debounce = 150 * time.Millisecond
	s := NewSearcher(client, nil, sink.apply, testLogger(), opts)

	ctx := context.Background()
	s.Submit(ctx, "ab")
	time.Sleep(50 * time.Millisecond) // within the quiet period
	s.Submit(ctx, "abc")
	time.Sleep(400 * time.Millisecond)

	queries := client.queryLog()
	if len(queries) != 1 || queries[0] != "abc" {
		t.Fatalf("queries = %v, want exactly [abc]", queries)
	}
	results := sink.all()
	if len(results) != 1 || results[0].Query != "abc" {
		t.Fatalf("applied results = %+v", results)
	}
}

func TestSubmitIgnoresShortQueries(t *testing.T) {
	client := &fakeClient{}
	sink := &resultSink{}
	opts := DefaultOptions()
	opts.Debounce = 30 * time.Millisecond
	s := NewSearcher(client, nil, sink.apply, testLogger(), opts)

	ctx := context.Background()
	s.Submit(ctx, "ab")
	s.Submit(ctx, "a") // erased below threshold before the timer fired
	time.Sleep(100 * time.Millisecond)

	if len(client.queryLog()) != 0 {
		t.Errorf("queries = %v, want none", client.queryLog())
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	client := &fakeClient{
		hits:       []graph.SearchResult{{ID: "Q1", Label: "Anna"}},
		blockQuery: "abc",
		release:    make(chan struct{}),
	}
	sink := &resultSink{}
	opts := DefaultOptions()
	opts.Debounce = 20 * time.Millisecond
	s := NewSearcher(client, nil, sink.apply, testLogger(), opts)

	ctx := context.Background()
	s.Submit(ctx, "abc")
	time.Sleep(60 * time.Millisecond) // first dispatch now blocked in flight

	s.Submit(ctx, "abcd")
	time.Sleep(80 * time.Millisecond) // second dispatch completes

	close(client.release) // first dispatch finally returns
	time.Sleep(50 * time.Millisecond)

	results := sink.all()
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 applied result, got %d", len(results))
	}
	if results[0].Query != "abcd" {
		t.Errorf("applied query = %q, want abcd", results[0].Query)
	}
}
