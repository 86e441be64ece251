// Package transport implements the single-endpoint MCP wire protocol:
// POST for JSON-RPC dispatch, GET for the SSE event stream, DELETE for
// session teardown, fronted by a shared battery of protocol-version
// Accept, origin, and DNS-rebinding pre-checks.
package transport

import "encoding/json"

// ProtocolVersion is the exact value the MCP-Protocol-Version header must
// carry (after whitespace trimming) for every request.
const ProtocolVersion = "2025-06-18"

// ServerName populates the initialized event's serverInfo name; its version
// field carries ProtocolVersion.
const ServerName = "docs-mcp"

// DefaultPath is the single endpoint path requests arrive on.
const DefaultPath = "/mcp"

// DefaultMaxBodyBytes bounds a POST body.
const DefaultMaxBodyBytes = 2 * 1024 * 1024

// RPCRequest is the JSON-RPC 2.0 request envelope accepted by POST.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RPCResponse is the JSON-RPC 2.0 response envelope, carrying either
// Result or Error but never both.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewResult builds a success envelope.
func NewResult(id json.RawMessage, result any) RPCResponse {
	return RPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// NewRPCError builds a failure envelope. Handler failures use JSON-RPC
// code -32603 (Internal error) regardless of the underlying cause, with
// the specific reason carried in Data.
func NewRPCError(id json.RawMessage, message string, data any) RPCResponse {
	return RPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: -32603, Message: message, Data: data}}
}

// PrecheckErrorCode is the fixed JSON-RPC code used on every pre-check
// failure envelope: -32600, Invalid Request.
const PrecheckErrorCode = -32600

// precheckEnvelope is the body of a pre-check failure response.
type precheckEnvelope struct {
	Error RPCError `json:"error"`
}

func newPrecheckBody(message string, data any) precheckEnvelope {
	return precheckEnvelope{Error: RPCError{Code: PrecheckErrorCode, Message: message, Data: data}}
}

// InitializedPayload is the payload of the GET stream's id:0 initialized
// event.
type InitializedPayload struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
