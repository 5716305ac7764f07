package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Key strategies for the credential endpoints. Those routes run before any
// token is checked, so the client address is the only identity available.
const (
	KeyStrategyIP      = "ip"
	KeyStrategyIPRoute = "ip_route"
)

// RateLimitConfig drives the Redis token bucket placed in front of the
// register and login endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables. Credential endpoints are
// the target, so the defaults are tighter than a general API limiter. Key
// strategies other than ip and ip_route are rejected.
func LoadRateLimitConfig() (RateLimitConfig, error) {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", KeyStrategyIPRoute)),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:auth"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	switch def.KeyStrategy {
	case KeyStrategyIP, KeyStrategyIPRoute:
	default:
		return RateLimitConfig{}, oops.Code("CONFIG_INVALID").
			With("RATE_LIMIT_KEY_STRATEGY", def.KeyStrategy).
			Errorf("unsupported rate limit key strategy %q (want ip or ip_route)", def.KeyStrategy)
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def, nil
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
