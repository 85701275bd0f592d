package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"vodstream/searchgateway/internal/domain"
)

func collectEvents(t *testing.T, events <-chan domain.SearchEvent) []domain.SearchEvent {
	t.Helper()
	var out []domain.SearchEvent
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-deadline:
			t.Fatalf("timed out waiting for stream, got %d events", len(out))
		}
	}
}

func TestStreamEventSequence(t *testing.T) {
	ok := &fakeProvider{key: "alpha", name: "Alpha", items: []domain.Item{
		item("alpha", "1", "庆余年"),
	}}
	broken := &fakeProvider{key: "beta", name: "Beta", err: errors.New("boom")}

	svc := newTestService(t)
	events := collectEvents(t, svc.Stream(context.Background(), "庆余年", []Provider{ok, broken}))

	if len(events) != 4 {
		t.Fatalf("expected start + 2 settlements + complete, got %d events", len(events))
	}
	if events[0].Type != domain.EventStart {
		t.Fatalf("first event must be start, got %q", events[0].Type)
	}
	if events[0].TotalSources != 2 || events[0].Query != "庆余年" {
		t.Fatalf("unexpected start payload: %+v", events[0])
	}
	if last := events[len(events)-1]; last.Type != domain.EventComplete {
		t.Fatalf("last event must be complete, got %q", last.Type)
	} else {
		if last.CompletedSources != 2 {
			t.Fatalf("expected 2 completed sources, got %d", last.CompletedSources)
		}
		if last.TotalResults != 1 {
			t.Fatalf("expected 1 total result, got %d", last.TotalResults)
		}
	}

	// Settlement events arrive in provider completion order. Verify the set.
	settlements := map[string]domain.EventType{}
	for _, event := range events[1 : len(events)-1] {
		settlements[event.Source] = event.Type
	}
	if settlements["alpha"] != domain.EventSourceResult {
		t.Fatalf("expected source_result for alpha, got %v", settlements)
	}
	if settlements["beta"] != domain.EventSourceError {
		t.Fatalf("expected source_error for beta, got %v", settlements)
	}
	for _, event := range events[1 : len(events)-1] {
		if event.Source == "alpha" && len(event.Results) != 1 {
			t.Fatalf("expected alpha settlement to carry its results, got %+v", event)
		}
		if event.Source == "beta" && event.Error == "" {
			t.Fatalf("expected beta settlement to carry an error message")
		}
	}
}

func TestStreamBlockedQuery(t *testing.T) {
	provider := &fakeProvider{key: "alpha", items: []domain.Item{item("alpha", "1", "x")}}

	svc := newTestService(t)
	events := collectEvents(t, svc.Stream(context.Background(), "赌博网站", []Provider{provider}))

	if len(events) != 2 {
		t.Fatalf("expected start + complete only, got %d events", len(events))
	}
	if events[0].Type != domain.EventStart || events[0].TotalSources != 0 {
		t.Fatalf("blocked query must announce zero sources, got %+v", events[0])
	}
	if events[1].Type != domain.EventComplete || events[1].TotalResults != 0 {
		t.Fatalf("unexpected complete payload: %+v", events[1])
	}
	if provider.calls.Load() != 0 {
		t.Fatalf("blocked query must not reach providers, got %d calls", provider.calls.Load())
	}
}

func TestStreamCancellation(t *testing.T) {
	slow := &fakeProvider{key: "alpha", name: "Alpha", delay: 5 * time.Second,
		items: []domain.Item{item("alpha", "1", "庆余年")}}

	ctx, cancel := context.WithCancel(context.Background())
	svc := newTestService(t)
	events := svc.Stream(ctx, "庆余年", []Provider{slow})

	first, ok := <-events
	if !ok || first.Type != domain.EventStart {
		t.Fatalf("expected start event, got %+v (open=%v)", first, ok)
	}
	cancel()

	// The channel must close without a complete event.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			if event.Type == domain.EventComplete {
				t.Fatal("cancelled stream must not emit complete")
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestStreamWritesCache(t *testing.T) {
	provider := &fakeProvider{key: "alpha", name: "Alpha", items: []domain.Item{
		item("alpha", "1", "庆余年"),
	}}
	cache := NewResultCache(NewMemoryStore(), time.Minute, nil)

	svc := newTestService(t, WithCache(cache))
	collectEvents(t, svc.Stream(context.Background(), "庆余年", []Provider{provider}))

	// A subsequent batch search for the same request is served from cache.
	results, err := svc.Aggregate(context.Background(), "庆余年", []Provider{provider})
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("expected stream result to satisfy the batch request, got %d calls", provider.calls.Load())
	}
	if len(results) != 1 {
		t.Fatalf("unexpected cached results: %+v", results)
	}
}
