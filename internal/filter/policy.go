package filter

// Config is the raw, human-maintained shape of a content policy: curated
// term lists plus toggles. Compile turns it into an immutable Policy.
type Config struct {
	// Version participates in cache fingerprints so entries written under
	// an older policy never satisfy a newer one.
	Version string `json:"version"`

	// CategoryFilterEnabled toggles the classification veto (stage 2).
	CategoryFilterEnabled bool `json:"categoryFilterEnabled"`

	// ClassificationTerms are matched as substrings against item categories.
	ClassificationTerms []string `json:"classificationTerms"`

	// BlockedTerms are matched as substrings against titles and categories,
	// and against the raw query for the request-level short-circuit.
	BlockedTerms []string `json:"blockedTerms"`

	// WhitelistTitles rescue legitimate titles that collide lexically with
	// a blocked substring. Exact match only.
	WhitelistTitles []string `json:"whitelistTitles"`

	// RestrictedProviders lists provider keys whose items are rejected
	// unconditionally (stage 1).
	RestrictedProviders []string `json:"restrictedProviders"`

	// QueryWhitelistBypass lets a query that exactly equals a whitelisted
	// title proceed to providers even when it contains a blocked substring.
	// Off by default: the query-level short-circuit fires first.
	QueryWhitelistBypass bool `json:"queryWhitelistBypass"`
}

// Policy is a compiled content policy. It is immutable after Compile and
// safe for concurrent use; every Filter and Aggregate call receives it
// explicitly rather than reading hidden globals.
type Policy struct {
	version              string
	categoryFilter       bool
	classificationTerms  []string
	blockedTerms         []string
	whitelist            map[string]struct{}
	restricted           map[string]struct{}
	queryWhitelistBypass bool
}

func Compile(cfg Config) *Policy {
	whitelist := make(map[string]struct{}, len(cfg.WhitelistTitles))
	for _, title := range cfg.WhitelistTitles {
		value := NormalizeTitle(title)
		if value != "" {
			whitelist[value] = struct{}{}
		}
	}
	restricted := make(map[string]struct{}, len(cfg.RestrictedProviders))
	for _, key := range cfg.RestrictedProviders {
		value := Normalize(key)
		if value != "" {
			restricted[value] = struct{}{}
		}
	}
	version := cfg.Version
	if version == "" {
		version = "v0"
	}
	return &Policy{
		version:              version,
		categoryFilter:       cfg.CategoryFilterEnabled,
		classificationTerms:  normalizeTerms(cfg.ClassificationTerms),
		blockedTerms:         normalizeTerms(cfg.BlockedTerms),
		whitelist:            whitelist,
		restricted:           restricted,
		queryWhitelistBypass: cfg.QueryWhitelistBypass,
	}
}

func (p *Policy) Version() string { return p.version }

// ProviderRestricted reports whether a provider key is globally vetoed.
// The orchestrator also consults this to skip dispatching such providers.
func (p *Policy) ProviderRestricted(key string) bool {
	_, ok := p.restricted[Normalize(key)]
	return ok
}

func (p *Policy) titleWhitelisted(title string) bool {
	_, ok := p.whitelist[NormalizeTitle(title)]
	return ok
}
