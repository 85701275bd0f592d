package domain

import "time"

// ProviderInfo describes one configured upstream content source. The
// registry owns these values; they are read-only to the aggregation core
// and immutable for the lifetime of a request.
type ProviderInfo struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint,omitempty"`
	Adult    bool   `json:"adult,omitempty"`
}

// Item is one normalized result unit produced by a provider adapter.
// Filtering and ranking never mutate an Item in place; they produce new
// slices instead.
type Item struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Category   string            `json:"category,omitempty"`
	SourceKey  string            `json:"source"`
	SourceName string            `json:"sourceName,omitempty"`
	Raw        map[string]string `json:"raw,omitempty"`
}

// DedupeKey identifies structurally identical items. Cross-provider
// duplicates keep distinct keys on purpose: the same title on two sources
// carries different availability data.
func (i Item) DedupeKey() string {
	return i.SourceKey + "\x00" + i.ID
}

type SearchResponse struct {
	Results []Item `json:"results"`
}

type EventType string

const (
	EventStart        EventType = "start"
	EventSourceResult EventType = "source_result"
	EventSourceError  EventType = "source_error"
	EventComplete     EventType = "complete"
)

// SearchEvent is one notification of the incremental delivery protocol.
// A stream is start, then exactly one source_result or source_error per
// dispatched provider, then complete - unless the consumer cancels first.
type SearchEvent struct {
	Type             EventType `json:"type"`
	Query            string    `json:"query,omitempty"`
	TotalSources     int       `json:"totalSources,omitempty"`
	Source           string    `json:"source,omitempty"`
	SourceName       string    `json:"sourceName,omitempty"`
	Results          []Item    `json:"results,omitempty"`
	Error            string    `json:"error,omitempty"`
	TotalResults     int       `json:"totalResults,omitempty"`
	CompletedSources int       `json:"completedSources,omitempty"`
	Timestamp        int64     `json:"timestamp"`
}

func NewEvent(kind EventType) SearchEvent {
	return SearchEvent{Type: kind, Timestamp: time.Now().UnixMilli()}
}

type SuggestionType string

const (
	SuggestionExact      SuggestionType = "exact"
	SuggestionRelated    SuggestionType = "related"
	SuggestionSuggestion SuggestionType = "suggestion"
)

type Suggestion struct {
	Text  string         `json:"text"`
	Type  SuggestionType `json:"type"`
	Score float64        `json:"score"`
}

// ProviderDiagnostics is per-provider bookkeeping exposed for
// observability. It never influences dispatch decisions.
type ProviderDiagnostics struct {
	Key           string     `json:"key"`
	Name          string     `json:"name"`
	LastError     string     `json:"lastError,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout   bool       `json:"lastTimeout,omitempty"`
	LastQuery     string     `json:"lastQuery,omitempty"`
	TotalRequests int64      `json:"totalRequests,omitempty"`
	TotalFailures int64      `json:"totalFailures,omitempty"`
	TimeoutCount  int64      `json:"timeoutCount,omitempty"`
}
