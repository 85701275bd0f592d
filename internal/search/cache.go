package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/metrics"
)

const defaultCacheTTL = 30 * time.Minute

// KVStore is the opaque key-value collaborator behind the result cache.
// The store, not this package, enforces expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ResultCache fronts the aggregation pipeline. Only successful, non-empty
// aggregations are stored; a store failure of any kind degrades to a miss.
type ResultCache struct {
	store  KVStore
	ttl    time.Duration
	logger *slog.Logger
}

func NewResultCache(store KVStore, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

func (c *ResultCache) TTL() time.Duration { return c.ttl }

// Fingerprint derives the deterministic cache key for one request:
// normalized query, sorted enabled-provider keys, and the filter policy
// version. Any policy bump invalidates every older entry by construction.
func Fingerprint(query string, providerKeys []string, policyVersion string) string {
	keys := make([]string, 0, len(providerKeys))
	seen := make(map[string]struct{}, len(providerKeys))
	for _, raw := range providerKeys {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	digest := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(strings.TrimSpace(query)),
		strings.Join(keys, ","),
		policyVersion,
	}, "|")))
	return "search:" + hex.EncodeToString(digest[:])
}

// Lookup returns the cached payload for a fingerprint. Unavailability and
// decode failures are logged and reported as misses, never surfaced.
func (c *ResultCache) Lookup(ctx context.Context, fingerprint string) ([]domain.Item, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	payload, found, err := c.store.Get(ctx, fingerprint)
	if err != nil {
		metrics.CacheErrorsTotal.Inc()
		c.logger.Warn("cache lookup failed, treating as miss",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	if !found {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	var items []domain.Item
	if err := json.Unmarshal(payload, &items); err != nil {
		metrics.CacheErrorsTotal.Inc()
		c.logger.Warn("cache entry undecodable, treating as miss",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return items, true
}

// Store overwrites the entry for a fingerprint. Empty payloads are skipped:
// caching an all-providers-down result would mask a recoverable failure for
// the whole TTL window.
func (c *ResultCache) Store(ctx context.Context, fingerprint string, items []domain.Item) {
	if c == nil || c.store == nil || len(items) == 0 {
		return
	}
	payload, err := json.Marshal(items)
	if err != nil {
		c.logger.Warn("cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(ctx, fingerprint, payload, c.ttl); err != nil {
		metrics.CacheErrorsTotal.Inc()
		c.logger.Warn("cache store failed",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()),
		)
	}
}
