package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig limits one route. Path is an exact route, a pattern with "*"
// segments, or a prefix ending in "/".
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int // requests per Window; 0 is unlimited
	Window time.Duration
	Burst  int // defaults to Limit
}

// Environment variables read by LoadConfig.
const (
	EnvEnabled         = "RATE_LIMIT_ENABLED"
	EnvDefaultLimit    = "RATE_LIMIT_DEFAULT_LIMIT"
	EnvDefaultWindow   = "RATE_LIMIT_DEFAULT_WINDOW"
	EnvCleanupInterval = "RATE_LIMIT_CLEANUP_INTERVAL"
	EnvUploadsPerHour  = "RATE_LIMIT_UPLOADS_PER_HOUR"
	EnvRegensPerHour   = "RATE_LIMIT_REGENERATIONS_PER_HOUR"
	EnvAllowedClients  = "RATE_LIMIT_WHITELIST"
	EnvBlockedClients  = "RATE_LIMIT_BLACKLIST"
)

const (
	defaultUploadsPerHr = 20
	defaultRegensPerHr  = 30
)

// LoadConfig builds the server's limits from the environment. Malformed values
// fall back to their defaults.
func LoadConfig() *Config {
	env := envLookup(os.LookupEnv)
	if !env.boolean(EnvEnabled, true) {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    env.integer(EnvDefaultLimit, 1000),
		DefaultWindow:   env.duration(EnvDefaultWindow, time.Minute),
		CleanupInterval: env.duration(EnvCleanupInterval, 5*time.Minute),
		Whitelist:       clientSet(env.text(EnvAllowedClients)),
		Blacklist:       clientSet(env.text(EnvBlockedClients)),
		EndpointConfigs: ImportEndpoints(
			env.integer(EnvUploadsPerHour, defaultUploadsPerHr),
			env.integer(EnvRegensPerHour, defaultRegensPerHr),
		),
	}
}

// DefaultEndpointConfigs returns ImportEndpoints with the default hourly quotas.
func DefaultEndpointConfigs() []EndpointConfig {
	return ImportEndpoints(defaultUploadsPerHr, defaultRegensPerHr)
}

// ImportEndpoints limits the import routes. Uploads and regenerations call the
// extraction provider and get hourly quotas; apply and discard only touch the
// session. Reads use the default limit and /health is never limited.
func ImportEndpoints(uploadsPerHour, regenerationsPerHour int) []EndpointConfig {
	return []EndpointConfig{
		{Path: "/imports", Method: "POST", Limit: uploadsPerHour, Window: time.Hour, Burst: min(uploadsPerHour, 5)},
		{Path: "/imports/*/regenerate", Method: "POST", Limit: regenerationsPerHour, Window: time.Hour, Burst: min(regenerationsPerHour, 5)},
		{Path: "/imports/*/apply", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/imports/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

// envLookup reads typed settings through a lookup such as os.LookupEnv.
type envLookup func(key string) (string, bool)

func (e envLookup) text(key string) string {
	v, _ := e(key)
	return strings.TrimSpace(v)
}

func (e envLookup) integer(key string, fallback int) int {
	if n, err := strconv.Atoi(e.text(key)); err == nil {
		return n
	}
	return fallback
}

func (e envLookup) boolean(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(e.text(key)); err == nil {
		return b
	}
	return fallback
}

func (e envLookup) duration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.text(key)); err == nil {
		return d
	}
	return fallback
}

// clientSet parses a comma-separated list of client addresses.
func clientSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, client := range strings.Split(list, ",") {
		if client = strings.TrimSpace(client); client != "" {
			set[client] = true
		}
	}
	return set
}
