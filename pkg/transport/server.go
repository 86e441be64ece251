// Package transport implements the single-endpoint MCP wire protocol:
// POST for JSON-RPC dispatch, GET for the SSE event stream, DELETE for
// session teardown, fronted by a shared battery of protocol-version,
// Accept, origin, and DNS-rebinding pre-checks.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/5dlabs/docs-mcp/pkg/session"
	"github.com/5dlabs/docs-mcp/pkg/sse"
)

// keepAliveInterval is the cadence of SSE keep-alive comment lines.
const keepAliveInterval = 17 * time.Second

// RPCHandler dispatches one JSON-RPC method call to the rest of the system
// (query engine, job orchestrator) and returns its result or an error to be
// wrapped in a JSON-RPC error envelope. Implementations live outside this
// package; the transport only knows how to carry the call.
type RPCHandler func(ctx context.Context, method string, params json.RawMessage) (any, error)

// Server is the MCP HTTP transport: one Echo v5 instance serving a single
// route at cfg.Path.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	cfg        Config
	sessions   *session.Manager
	hub        *sse.Hub
	handler    RPCHandler
	logger     *slog.Logger
}

// NewServer builds a Server wired to a session manager, SSE hub, and the
// JSON-RPC method dispatcher.
func NewServer(cfg Config, sessions *session.Manager, hub *sse.Hub, handler RPCHandler) *Server {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	e := echo.New()
	s := &Server{
		echo:     e,
		cfg:      cfg,
		sessions: sessions,
		hub:      hub,
		handler:  handler,
		logger:   slog.Default(),
	}

	e.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	e.Use(securityHeaders())

	e.POST(cfg.Path, s.handlePost)
	e.GET(cfg.Path, s.handleGet)
	e.DELETE(cfg.Path, s.handleDelete)

	return s
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writePrecheckError(c *echo.Context, err *Error) error {
	c.Response().Header().Set(headerProtocolVersion, ProtocolVersion)
	return c.JSON(err.Status, newPrecheckBody(err.Message, err.Detail))
}

// resolveSession finds the session for a request, falling back to a
// stable-identity bucket (derived from X-Client-Id/MCP_CLIENT_ID and
// User-Agent) for clients that cannot retain Mcp-Session-Id across calls.
func (s *Server) resolveSession(c *echo.Context) (*session.Session, *Error) {
	protoVersion := c.Request().Header.Get(headerProtocolVersion)

	if id := c.Request().Header.Get(headerSessionID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return nil, errInvalidSessionID(id)
		}
		sess, err := s.sessions.Validate(id, protoVersion)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return nil, errSessionNotFound()
			}
			return nil, errInternal(err)
		}
		return sess, nil
	}

	clientID := c.Request().Header.Get(headerClientID)
	if clientID == "" {
		clientID = s.cfg.DefaultClientID
	}
	userAgent := c.Request().Header.Get("User-Agent")
	sess, err := s.sessions.GetOrCreateStable(clientID, userAgent, protoVersion)
	if err != nil {
		return nil, errInternal(err)
	}
	return sess, nil
}

// handlePost implements POST /mcp: JSON-RPC dispatch with an inline or
// SSE-published response depending on the client's Accept preference.
func (s *Server) handlePost(c *echo.Context) error {
	if precheckErr := runPrechecks(c, s.cfg); precheckErr != nil {
		return s.writePrecheckError(c, precheckErr)
	}

	ct := c.Request().Header.Get("Content-Type")
	if ct == "" {
		return s.writePrecheckError(c, errMissingContentType())
	}
	if !hasPrefix(ct, "application/json") {
		return s.writePrecheckError(c, errInvalidContentType(ct))
	}

	if cl := c.Request().Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > s.cfg.MaxBodyBytes {
			return s.writePrecheckError(c, errPayloadTooLarge(s.cfg.MaxBodyBytes))
		}
	}

	reqID := uuid.New()
	log := s.logger.With("request_id", reqID)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		return s.writePrecheckError(c, errInternal(err))
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		return s.writePrecheckError(c, errPayloadTooLarge(s.cfg.MaxBodyBytes))
	}

	var rpcReq RPCRequest
	if err := json.Unmarshal(body, &rpcReq); err != nil {
		return s.writePrecheckError(c, errJSONParse(err))
	}

	sess, sessErr := s.resolveSession(c)
	if sessErr != nil {
		return s.writePrecheckError(c, sessErr)
	}
	c.Response().Header().Set(headerSessionID, sess.ID)

	result, handlerErr := s.handler(c.Request().Context(), rpcReq.Method, rpcReq.Params)
	var rpcResp RPCResponse
	if handlerErr != nil {
		log.Warn("rpc handler failed", "method", rpcReq.Method, "error", handlerErr)
		rpcResp = NewRPCError(rpcReq.ID, "Internal Server Error", handlerErr.Error())
	} else {
		rpcResp = NewResult(rpcReq.ID, result)
	}

	accept := c.Request().Header.Get("Accept")
	if prefersSSE(accept) {
		payload, err := json.Marshal(rpcResp)
		if err != nil {
			return s.writePrecheckError(c, errInternal(err))
		}
		s.hub.Publish(sess.ID, "message", payload)
		return c.JSON(http.StatusOK, map[string]string{"status": "streaming"})
	}
	return c.JSON(http.StatusOK, rpcResp)
}

// handleGet implements GET /mcp: the SSE event stream, feature-gated by
// cfg.EnableSSE.
func (s *Server) handleGet(c *echo.Context) error {
	if precheckErr := runPrechecks(c, s.cfg); precheckErr != nil {
		return s.writePrecheckError(c, precheckErr)
	}
	if !s.cfg.EnableSSE {
		return s.writePrecheckError(c, errMethodNotAllowed(http.MethodGet))
	}

	sess, sessErr := s.resolveSession(c)
	if sessErr != nil {
		return s.writePrecheckError(c, sessErr)
	}
	c.Response().Header().Set(headerSessionID, sess.ID)

	var lastEventID uint64
	if v := c.Request().Header.Get(headerLastEventID); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			lastEventID = n
		}
	}

	w, err := sse.NewWriter(c.Response())
	if err != nil {
		return s.writePrecheckError(c, errInternal(err))
	}

	initPayload, err := json.Marshal(InitializedPayload{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{},
		ServerInfo:      serverInfo{Name: ServerName, Version: ProtocolVersion},
	})
	if err != nil {
		return s.writePrecheckError(c, errInternal(err))
	}
	if err := w.WriteEvent(sse.Event{ID: 0, Type: "initialized", Data: initPayload, CreatedAt: time.Now()}); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	sub, err := s.hub.Subscribe(ctx, sess.ID, lastEventID)
	if err != nil {
		return s.writePrecheckError(c, errInternal(err))
	}
	defer sub.Close()

	for _, ev := range sub.Replay {
		if err := w.WriteEvent(ev); err != nil {
			return nil
		}
	}
	if sub.Overflow {
		_ = w.WriteComment("lagged: some buffered events were evicted before replay")
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if sub.Lagged() {
				if err := w.WriteComment("lagged: some events were dropped for this slow subscriber"); err != nil {
					return nil
				}
			}
			if err := w.WriteEvent(ev); err != nil {
				return nil
			}
		case <-ticker.C:
			if sub.Lagged() {
				if err := w.WriteComment("lagged: some events were dropped for this slow subscriber"); err != nil {
					return nil
				}
			}
			if err := w.WriteComment("keep-alive"); err != nil {
				return nil
			}
		}
	}
}

// handleDelete implements DELETE /mcp: explicit session teardown.
func (s *Server) handleDelete(c *echo.Context) error {
	if precheckErr := runPrechecks(c, s.cfg); precheckErr != nil {
		return s.writePrecheckError(c, precheckErr)
	}

	id := c.Request().Header.Get(headerSessionID)
	if id == "" {
		return s.writePrecheckError(c, errMethodNotAllowed(http.MethodDelete))
	}
	if _, err := uuid.Parse(id); err != nil {
		return s.writePrecheckError(c, errInvalidSessionID(id))
	}

	if err := s.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return s.writePrecheckError(c, errSessionNotFound())
		}
		return s.writePrecheckError(c, errInternal(err))
	}
	s.hub.Close(id)
	return c.NoContent(http.StatusNoContent)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
