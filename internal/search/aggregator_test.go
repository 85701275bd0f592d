package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/filter"
)

type fakeProvider struct {
	key   string
	name  string
	items []domain.Item
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (f *fakeProvider) Key() string { return f.key }

func (f *fakeProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Key: f.key, Name: f.name}
}

func (f *fakeProvider) Search(ctx context.Context, _ string) ([]domain.Item, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func item(source, id, title string) domain.Item {
	return domain.Item{ID: id, Title: title, SourceKey: source, SourceName: source}
}

func testPolicy(t *testing.T) *filter.Policy {
	t.Helper()
	return filter.Compile(filter.Config{
		Version:               "test-v1",
		CategoryFilterEnabled: true,
		ClassificationTerms:   []string{"伦理"},
		BlockedTerms:          []string{"赌博"},
		WhitelistTitles:       []string{"罪恶之渊"},
		RestrictedProviders:   []string{"shady"},
	})
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(testPolicy(t), 2*time.Second, opts...)
}

func TestAggregateMergesAndAbsorbsFailures(t *testing.T) {
	ok := &fakeProvider{key: "alpha", name: "Alpha", items: []domain.Item{
		item("alpha", "1", "庆余年"),
		item("alpha", "2", "庆余年 第二季"),
	}}
	broken := &fakeProvider{key: "beta", name: "Beta", err: errors.New("boom")}

	svc := newTestService(t)
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{ok, broken})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "庆余年" {
		t.Fatalf("expected exact match ranked first, got %q", results[0].Title)
	}
}

func TestAggregateEmptyQuery(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Aggregate(context.Background(), "   ", nil); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestAggregateBlockedQueryDispatchesNothing(t *testing.T) {
	provider := &fakeProvider{key: "alpha", items: []domain.Item{item("alpha", "1", "whatever")}}

	svc := newTestService(t)
	results, err := svc.Aggregate(context.Background(), "赌博网站", []Provider{provider})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results for blocked query, got %d", len(results))
	}
	if results == nil {
		t.Fatal("blocked query must return an empty slice, not nil")
	}
	if provider.calls.Load() != 0 {
		t.Fatalf("blocked query must not reach providers, got %d calls", provider.calls.Load())
	}
}

func TestAggregateRestrictedProviderNotDispatched(t *testing.T) {
	restricted := &fakeProvider{key: "shady", items: []domain.Item{item("shady", "1", "庆余年")}}
	normal := &fakeProvider{key: "alpha", items: []domain.Item{item("alpha", "1", "庆余年")}}

	svc := newTestService(t)
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{restricted, normal})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if restricted.calls.Load() != 0 {
		t.Fatalf("restricted provider must not be queried, got %d calls", restricted.calls.Load())
	}
	if len(results) != 1 || results[0].SourceKey != "alpha" {
		t.Fatalf("expected the single alpha result, got %+v", results)
	}
}

func TestAggregateDedupe(t *testing.T) {
	// Same (source, id) twice collapses; same id under another source stays.
	alpha := &fakeProvider{key: "alpha", items: []domain.Item{
		item("alpha", "1", "庆余年"),
		item("alpha", "1", "庆余年"),
	}}
	beta := &fakeProvider{key: "beta", items: []domain.Item{
		item("beta", "1", "庆余年"),
	}}

	svc := newTestService(t)
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{alpha, beta})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after dedupe, got %d", len(results))
	}
	sources := map[string]bool{}
	for _, r := range results {
		sources[r.SourceKey] = true
	}
	if !sources["alpha"] || !sources["beta"] {
		t.Fatalf("expected one item per source, got %+v", results)
	}
}

func TestAggregateFiltersBlockedItems(t *testing.T) {
	provider := &fakeProvider{key: "alpha", items: []domain.Item{
		item("alpha", "1", "庆余年"),
		item("alpha", "2", "赌博之王"),
		{ID: "3", Title: "某剧", Category: "伦理片", SourceKey: "alpha"},
	}}

	svc := newTestService(t)
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Fatalf("expected only the clean item to survive, got %+v", results)
	}
}

func TestAggregateCacheHitSkipsProviders(t *testing.T) {
	provider := &fakeProvider{key: "alpha", items: []domain.Item{item("alpha", "1", "庆余年")}}
	cache := NewResultCache(NewMemoryStore(), time.Minute, nil)

	svc := newTestService(t, WithCache(cache))
	if _, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider}); err != nil {
		t.Fatalf("first Aggregate: %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected exactly 1 provider call, got %d", provider.calls.Load())
	}

	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider})
	if err != nil {
		t.Fatalf("second Aggregate: %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("cache hit must not reach providers, got %d calls", provider.calls.Load())
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Fatalf("unexpected cached results: %+v", results)
	}
}

func TestAggregateCacheHitIsRefiltered(t *testing.T) {
	store := NewMemoryStore()
	cache := NewResultCache(store, time.Minute, nil)
	svc := newTestService(t, WithCache(cache))

	// Seed an entry containing an item the current policy rejects, as if it
	// was written before a blocklist update within the TTL window.
	fingerprint := Fingerprint("庆余年", []string{"alpha"}, svc.Policy().Version())
	cache.Store(context.Background(), fingerprint, []domain.Item{
		item("alpha", "1", "庆余年"),
		item("alpha", "2", "赌博之王"),
	})

	provider := &fakeProvider{key: "alpha"}
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if provider.calls.Load() != 0 {
		t.Fatalf("expected cache hit, provider called %d times", provider.calls.Load())
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Fatalf("stale cached item must be re-filtered out, got %+v", results)
	}
}

func TestAggregateEmptyResultNotCached(t *testing.T) {
	provider := &fakeProvider{key: "alpha", err: errors.New("down")}
	store := NewMemoryStore()
	cache := NewResultCache(store, time.Minute, nil)

	svc := newTestService(t, WithCache(cache))
	if _, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider}); err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}

	// Recovery on the very next request: nothing was cached.
	provider.err = nil
	provider.items = []domain.Item{item("alpha", "1", "庆余年")}
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider})
	if err != nil {
		t.Fatalf("second Aggregate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected recovered results, got %+v", results)
	}
	if provider.calls.Load() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", provider.calls.Load())
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store unavailable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store unavailable")
}

func TestAggregateCacheFailureIsForcedMiss(t *testing.T) {
	provider := &fakeProvider{key: "alpha", items: []domain.Item{item("alpha", "1", "庆余年")}}
	cache := NewResultCache(failingStore{}, time.Minute, nil)

	svc := newTestService(t, WithCache(cache))
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider})
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected live results despite broken cache, got %+v", results)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected provider fallback, got %d calls", provider.calls.Load())
	}
}

func TestAggregateOneKeepsExactTitleOnly(t *testing.T) {
	provider := &fakeProvider{key: "alpha", name: "Alpha", items: []domain.Item{
		item("alpha", "1", "庆余年"),
		item("alpha", "2", "庆余年 第二季"),
	}}

	svc := newTestService(t)
	results, err := svc.AggregateOne(context.Background(), "庆余年", provider)
	if err != nil {
		t.Fatalf("AggregateOne returned error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "1" {
		t.Fatalf("expected only the exact-title item, got %+v", results)
	}
}

func TestAggregateOneRestrictedProvider(t *testing.T) {
	provider := &fakeProvider{key: "shady", items: []domain.Item{item("shady", "1", "庆余年")}}

	svc := newTestService(t)
	results, err := svc.AggregateOne(context.Background(), "庆余年", provider)
	if err != nil {
		t.Fatalf("AggregateOne returned error: %v", err)
	}
	if len(results) != 0 || provider.calls.Load() != 0 {
		t.Fatalf("restricted provider must be refused without dispatch, got %+v (%d calls)", results, provider.calls.Load())
	}
}

func TestAggregateOneProviderFailure(t *testing.T) {
	provider := &fakeProvider{key: "alpha", err: errors.New("boom")}

	svc := newTestService(t)
	if _, err := svc.AggregateOne(context.Background(), "庆余年", provider); !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	items := []domain.Item{
		{ID: "1", Title: "first", SourceKey: "a"},
		{ID: "1", Title: "second", SourceKey: "a"},
		{ID: "1", Title: "third", SourceKey: "b"},
	}
	out := dedupe(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].Title != "first" {
		t.Fatalf("expected first occurrence kept, got %q", out[0].Title)
	}
}
