package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	ProviderTimeout time.Duration
	LogLevel        string
	LogFormat       string
	UserAgent       string
	RedisURL        string
	CacheTTL        time.Duration
	CacheDisabled   bool
	SitesFile       string
	PolicyFile      string
	AuthToken       string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8085"),
		ProviderTimeout: time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 20)) * time.Second,
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:       getEnv("SEARCH_USER_AGENT", "search-gateway/1.0"),
		RedisURL:        getEnv("REDIS_URL", ""),
		CacheTTL:        time.Duration(getEnvInt("SEARCH_CACHE_TTL_MINUTES", 30)) * time.Minute,
		CacheDisabled:   getEnvBool("SEARCH_CACHE_DISABLED", false),
		SitesFile:       getEnv("SEARCH_SITES_FILE", "sites.json"),
		PolicyFile:      getEnv("SEARCH_POLICY_FILE", ""),
		AuthToken:       strings.TrimSpace(os.Getenv("AUTH_TOKEN")),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
