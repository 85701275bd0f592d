// Package registry holds the persisted site/source configuration: which
// providers exist, their static attributes, and per-identity enablement.
// It is read-only to the aggregation core.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"vodstream/searchgateway/internal/domain"
	"vodstream/searchgateway/internal/search"
)

// Site is one configured upstream source as written in the sites file.
type Site struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Endpoint    string   `json:"endpoint"`
	Adult       bool     `json:"adult,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
	DisabledFor []string `json:"disabledFor,omitempty"`
}

type Registry struct {
	sites    []Site
	adapters map[string]search.Provider
}

// AdapterFactory builds the concrete provider adapter for one site.
type AdapterFactory func(site Site) search.Provider

func New(sites []Site, factory AdapterFactory) (*Registry, error) {
	adapters := make(map[string]search.Provider, len(sites))
	kept := make([]Site, 0, len(sites))
	for _, site := range sites {
		key := strings.ToLower(strings.TrimSpace(site.Key))
		if key == "" {
			return nil, fmt.Errorf("site with empty key (name %q)", site.Name)
		}
		if _, dup := adapters[key]; dup {
			return nil, fmt.Errorf("duplicate site key %q", key)
		}
		site.Key = key
		adapters[key] = factory(site)
		kept = append(kept, site)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Key < kept[j].Key })
	return &Registry{sites: kept, adapters: adapters}, nil
}

// LoadSites reads the sites file. A missing file is an error: a gateway
// with zero configured sources is a deployment mistake.
func LoadSites(path string) ([]Site, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	var sites []Site
	if err := json.Unmarshal(payload, &sites); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("sites file %s lists no sources", path)
	}
	return sites, nil
}

// EnabledProviders returns the providers available to one identity, in
// stable key order. Globally disabled sites and sites disabled for this
// identity are excluded.
func (r *Registry) EnabledProviders(username string) []search.Provider {
	username = strings.ToLower(strings.TrimSpace(username))
	out := make([]search.Provider, 0, len(r.sites))
	for _, site := range r.sites {
		if site.Disabled {
			continue
		}
		if disabledFor(site, username) {
			continue
		}
		out = append(out, r.adapters[site.Key])
	}
	return out
}

// Provider resolves a single key for the scoped-search endpoint.
func (r *Registry) Provider(username, key string) (search.Provider, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	adapter, ok := r.adapters[key]
	if !ok {
		return nil, false
	}
	for _, site := range r.sites {
		if site.Key != key {
			continue
		}
		if site.Disabled || disabledFor(site, strings.ToLower(strings.TrimSpace(username))) {
			return nil, false
		}
		return adapter, true
	}
	return nil, false
}

// Sites exposes the configured site list for the resources endpoint.
func (r *Registry) Sites() []domain.ProviderInfo {
	out := make([]domain.ProviderInfo, 0, len(r.sites))
	for _, site := range r.sites {
		if site.Disabled {
			continue
		}
		out = append(out, domain.ProviderInfo{
			Key:      site.Key,
			Name:     site.Name,
			Endpoint: site.Endpoint,
			Adult:    site.Adult,
		})
	}
	return out
}

func disabledFor(site Site, username string) bool {
	if username == "" {
		return false
	}
	for _, blocked := range site.DisabledFor {
		if strings.ToLower(strings.TrimSpace(blocked)) == username {
			return true
		}
	}
	return false
}
