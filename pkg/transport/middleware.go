package transport

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	echo "github.com/labstack/echo/v5"
)

const (
	headerProtocolVersion = "MCP-Protocol-Version"
	headerSessionID       = "Mcp-Session-Id"
	headerLastEventID     = "Last-Event-ID"
	headerClientID        = "X-Client-Id"
)

// securityHeaders sets the defensive response headers required on every
// response regardless of how the request resolves.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set(headerProtocolVersion, ProtocolVersion)
			return next(c)
		}
	}
}

// runPrechecks applies the protocol-version, Accept, origin, and
// DNS-rebinding checks shared by every method, in the fixed order they must
// fail in.
func runPrechecks(c *echo.Context, cfg Config) *Error {
	if err := checkProtocolVersion(c); err != nil {
		return err
	}
	if err := checkAccept(c); err != nil {
		return err
	}
	if err := checkOrigin(c, cfg); err != nil {
		return err
	}
	if err := checkDNSRebinding(c); err != nil {
		return err
	}
	return nil
}

func checkProtocolVersion(c *echo.Context) *Error {
	got := strings.TrimSpace(c.Request().Header.Get(headerProtocolVersion))
	if got != ProtocolVersion {
		return errUnsupportedProtocolVersion(got)
	}
	return nil
}

func checkAccept(c *echo.Context) *Error {
	accept := c.Request().Header.Get("Accept")

	var allowed []string
	switch c.Request().Method {
	case http.MethodPost:
		allowed = []string{"application/json", "application/*", "text/event-stream", "text/*", "*/*"}
	case http.MethodGet:
		allowed = []string{"text/event-stream", "text/*", "*/*"}
	default:
		return nil
	}

	if accept == "" {
		return errInvalidAcceptHeader(accept)
	}
	for _, want := range allowed {
		if acceptPermits(accept, want) {
			return nil
		}
	}
	return errUnacceptableAcceptHeader(accept)
}

// acceptPermits reports whether accept's comma-separated media ranges
// permit want, honoring "type/*" and "*/*" wildcards on either side.
func acceptPermits(accept, want string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mt == "*/*" || mt == want {
			return true
		}
		if strings.HasSuffix(want, "/*") && strings.HasPrefix(mt, strings.TrimSuffix(want, "*")) {
			return true
		}
		if strings.HasSuffix(mt, "/*") && strings.HasPrefix(want, strings.TrimSuffix(mt, "*")) {
			return true
		}
	}
	return false
}

// prefersSSE reports whether the client explicitly listed text/event-stream
// in Accept, meaning a POST response should be acknowledged and published
// to the session's SSE stream instead of returned inline.
func prefersSSE(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mt == "text/event-stream" {
			return true
		}
	}
	return false
}

func checkOrigin(c *echo.Context, cfg Config) *Error {
	origin := c.Request().Header.Get("Origin")
	if origin == "" {
		if cfg.RequireOriginHeader {
			return errSecurityValidationFailed("missing Origin header")
		}
		return nil
	}
	if origin == "null" {
		if cfg.StrictOriginValidation {
			return errSecurityValidationFailed("null origin not allowed in strict mode")
		}
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		if cfg.StrictOriginValidation {
			return errSecurityValidationFailed("origin scheme is not http(s)")
		}
		return nil
	}
	if cfg.originAllowed(origin) {
		return nil
	}
	if cfg.StrictOriginValidation {
		return errSecurityValidationFailed("origin not in allow-list")
	}
	return nil
}

// checkDNSRebinding enforces that Host and Origin agree when both resolve
// to non-loopback authorities, guarding against a browser being tricked
// into addressing this server under an attacker-controlled hostname.
func checkDNSRebinding(c *echo.Context) *Error {
	origin := c.Request().Header.Get("Origin")
	host := c.Request().Host
	if origin == "" || origin == "null" || host == "" {
		return nil
	}

	u, err := url.Parse(origin)
	if err != nil {
		return nil
	}
	originHost := u.Hostname()
	hostOnly, _, err := net.SplitHostPort(host)
	if err != nil {
		hostOnly = host
	}

	if isLoopbackHost(originHost) || isLoopbackHost(hostOnly) {
		return nil
	}
	if !strings.EqualFold(originHost, hostOnly) {
		return errSecurityValidationFailed("Host and Origin authorities do not match")
	}
	return nil
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
