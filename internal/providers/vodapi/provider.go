// Package vodapi implements the provider adapter for CMS-style video list
// APIs: GET endpoint?ac=videolist&wd=<query> returning {"list": [...]}.
package vodapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vodstream/searchgateway/internal/domain"
)

const (
	defaultUserAgent = "search-gateway/1.0"
	maxResponseBytes = 4 * 1024 * 1024
)

type Config struct {
	Key       string
	Name      string
	Endpoint  string
	Adult     bool
	UserAgent string
	Client    *http.Client
}

type Provider struct {
	key       string
	name      string
	endpoint  string
	adult     bool
	userAgent string
	client    *http.Client
}

type apiEnvelope struct {
	List []apiItem `json:"list"`
}

// apiItem tolerates the field-name drift across CMS deployments: some emit
// vod_name/type_name, others name/category.
type apiItem struct {
	ID       json.Number `json:"vod_id"`
	Name     string      `json:"vod_name"`
	AltName  string      `json:"name"`
	TypeName string      `json:"type_name"`
	Category string      `json:"category"`
	Pic      string      `json:"vod_pic"`
	Year     string      `json:"vod_year"`
	Remarks  string      `json:"vod_remarks"`
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Provider{
		key:       strings.ToLower(strings.TrimSpace(cfg.Key)),
		name:      cfg.Name,
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		adult:     cfg.Adult,
		userAgent: userAgent,
		client:    client,
	}
}

func (p *Provider) Key() string { return p.key }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Key:      p.key,
		Name:     p.name,
		Endpoint: p.endpoint,
		Adult:    p.adult,
	}
}

func (p *Provider) Search(ctx context.Context, query string) ([]domain.Item, error) {
	uri, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	values := uri.Query()
	values.Set("ac", "videolist")
	values.Set("wd", strings.TrimSpace(query))
	uri.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]domain.Item, 0, len(envelope.List))
	for _, entry := range envelope.List {
		item := p.normalize(entry)
		if item.Title == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Provider) normalize(entry apiItem) domain.Item {
	title := strings.TrimSpace(entry.Name)
	if title == "" {
		title = strings.TrimSpace(entry.AltName)
	}
	category := strings.TrimSpace(entry.TypeName)
	if category == "" {
		category = strings.TrimSpace(entry.Category)
	}

	id := entry.ID.String()
	if id == "" {
		// A missing id would break (sourceKey, id) dedupe; derive a stable
		// one from the title.
		id = "t:" + strconv.Itoa(len(title)) + ":" + title
	}

	raw := make(map[string]string, 3)
	if entry.Pic != "" {
		raw["poster"] = entry.Pic
	}
	if entry.Year != "" {
		raw["year"] = entry.Year
	}
	if entry.Remarks != "" {
		raw["remarks"] = entry.Remarks
	}
	if len(raw) == 0 {
		raw = nil
	}

	return domain.Item{
		ID:         id,
		Title:      title,
		Category:   category,
		SourceKey:  p.key,
		SourceName: p.name,
		Raw:        raw,
	}
}
