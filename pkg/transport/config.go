package transport

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Config tunes the transport's pre-check and feature-gate behavior.
type Config struct {
	// Path is the single endpoint requests arrive on. Defaults to DefaultPath.
	Path string
	// MaxBodyBytes bounds a POST body. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// AllowedOrigins is the origin allow-list checked against the Origin
	// header's scheme+host+port.
	AllowedOrigins []string
	// StrictOriginValidation rejects non-http(s) schemes and any origin not
	// on AllowedOrigins. When false, non-browser clients without a
	// meaningful Origin (e.g. "null" or absent) are let through.
	StrictOriginValidation bool
	// RequireOriginHeader rejects requests with no Origin header at all,
	// regardless of strict mode.
	RequireOriginHeader bool
	// LocalhostOnly additionally allows any loopback origin regardless of
	// AllowedOrigins, for local development.
	LocalhostOnly bool

	// EnableSSE feature-gates the GET event stream; when false, GET returns
	// 405 method-not-allowed.
	EnableSSE bool

	// DefaultClientID is used for the stable-identity fallback when a
	// request carries no X-Client-Id header.
	DefaultClientID string
}

// LoadConfigFromEnv reads transport configuration from the MCP_* environment
// variables documented in the configuration surface.
func LoadConfigFromEnv() Config {
	return Config{
		Path:                   getEnvOrDefault("MCP_PATH", DefaultPath),
		MaxBodyBytes:           int64(DefaultMaxBodyBytes),
		AllowedOrigins:         splitCommaList(os.Getenv("MCP_ALLOWED_ORIGINS")),
		StrictOriginValidation: getEnvBool("MCP_STRICT_ORIGIN_VALIDATION", false),
		RequireOriginHeader:    getEnvBool("MCP_REQUIRE_ORIGIN_HEADER", false),
		LocalhostOnly:          getEnvBool("MCP_LOCALHOST_ONLY", false),
		EnableSSE:              getEnvBool("MCP_ENABLE_SSE", true),
		DefaultClientID:        os.Getenv("MCP_CLIENT_ID"),
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCommaList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// originAllowed checks origin against cfg's allow-list and localhost
// exemption. The comparison is scheme+host+port, matching how browsers
// populate the Origin header.
func (c Config) originAllowed(origin string) bool {
	if c.LocalhostOnly && isLoopbackOrigin(origin) {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
