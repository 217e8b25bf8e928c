// Package config reads process configuration from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultStaleTime       = 30 * time.Second
	defaultMutationTimeout = 30 * time.Second
	defaultFetchTimeout    = 30 * time.Second
	defaultCacheTTL        = 10 * time.Minute
	defaultCachePrefix     = "kanban:"
	defaultChangesChannel  = "kanban-changes"
	defaultDeduperTTL      = 24 * time.Hour
	defaultJWKSCacheTTL    = 15 * time.Minute
)

// Client configures a session.
type Client struct {
	APIURL             string
	Token              string
	StaleTime          time.Duration
	MutationTimeout    time.Duration
	FetchTimeout       time.Duration
	EmbedCardSummaries bool
	PageSize           int

	// Redis is nil when no connection string is set; the mirror and the
	// change subscription are then disabled.
	Redis          *redis.Options
	CacheTTL       time.Duration
	CachePrefix    string
	ChangesChannel string
}

// Server configures the reference API server.
type Server struct {
	Addr  string
	Debug bool

	Redis          *redis.Options
	ChangesChannel string
	DeduperTTL     time.Duration

	JWKSURL      string
	Audience     string
	Issuer       string
	SharedSecret string
	JWKSCacheTTL time.Duration
}

// LoadClient reads the session configuration.
func LoadClient() (Client, error) {
	var errs []error
	cfg := Client{
		APIURL:             envString("KANBAN_API_URL", ""),
		Token:              envString("KANBAN_API_TOKEN", ""),
		StaleTime:          envDur("KANBAN_STALE_TIME", defaultStaleTime, &errs),
		MutationTimeout:    envDur("KANBAN_MUTATION_TIMEOUT", defaultMutationTimeout, &errs),
		FetchTimeout:       envDur("KANBAN_FETCH_TIMEOUT", defaultFetchTimeout, &errs),
		EmbedCardSummaries: envBool("KANBAN_EMBED_CARD_SUMMARIES", false, &errs),
		PageSize:           envInt("KANBAN_PAGE_SIZE", 100, &errs),
		CacheTTL:           envDur("KANBAN_CACHE_TTL", defaultCacheTTL, &errs),
		CachePrefix:        envString("KANBAN_CACHE_PREFIX", defaultCachePrefix),
		ChangesChannel:     envString("KANBAN_CHANGES_CHANNEL", defaultChangesChannel),
	}
	if cfg.APIURL == "" {
		errs = append(errs, errors.New("missing KANBAN_API_URL"))
	} else if u, err := url.Parse(cfg.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid KANBAN_API_URL %q", cfg.APIURL))
	}
	if cfg.MutationTimeout <= 0 {
		errs = append(errs, errors.New("invalid KANBAN_MUTATION_TIMEOUT: must be greater than zero"))
	}
	if cfg.PageSize <= 0 {
		errs = append(errs, errors.New("invalid KANBAN_PAGE_SIZE: must be greater than zero"))
	}
	if conn := envString("REDIS_CONNECTION_STRING", ""); conn != "" {
		opts, err := ParseRedis(conn)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Redis = opts
	}
	return cfg, errors.Join(errs...)
}

// LoadServer reads the API server configuration.
func LoadServer() (Server, error) {
	var errs []error
	cfg := Server{
		Addr:           ":" + envString("PORT", "8080"),
		Debug:          envBool("DEBUG", false, &errs),
		ChangesChannel: envString("KANBAN_CHANGES_CHANNEL", defaultChangesChannel),
		DeduperTTL:     envDur("DEDUPER_TTL", defaultDeduperTTL, &errs),
		JWKSURL:        envString("AUTH_JWKS_URL", ""),
		Audience:       envString("AUTH_AUDIENCE", ""),
		Issuer:         envString("AUTH_ISSUER", ""),
		SharedSecret:   envString("LOCAL_AUTH_SHARED_SECRET", ""),
		JWKSCacheTTL:   envDur("JWKS_CACHE_TTL", defaultJWKSCacheTTL, &errs),
	}
	if cfg.DeduperTTL <= 0 {
		errs = append(errs, errors.New("invalid DEDUPER_TTL: must be greater than zero"))
	}
	if cfg.JWKSURL != "" && cfg.SharedSecret != "" {
		errs = append(errs, errors.New("AUTH_JWKS_URL and LOCAL_AUTH_SHARED_SECRET are mutually exclusive"))
	}
	if conn := envString("REDIS_CONNECTION_STRING", ""); conn != "" {
		opts, err := ParseRedis(conn)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Redis = opts
	}
	return cfg, errors.Join(errs...)
}

// ParseRedis accepts a redis:// URL or the "host:port,password=...,ssl=true"
// form.
func ParseRedis(conn string) (*redis.Options, error) {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	addr := strings.TrimSpace(parts[0])
	if addr == "" || strings.Contains(addr, "://") {
		return nil, fmt.Errorf("invalid REDIS_CONNECTION_STRING %q", conn)
	}
	opts := &redis.Options{Addr: addr}
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "password":
			opts.Password = v
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(v), "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func envDur(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// Bare numbers are seconds.
		if n, nerr := strconv.Atoi(raw); nerr == nil {
			return time.Duration(n) * time.Second
		}
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func envBool(key string, def bool, errs *[]error) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}
