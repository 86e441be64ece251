package transport

import "net/http"

// Kind identifies a pre-check failure category. Each has a fixed HTTP
// status and is emitted as the pre-check error envelope.
type Kind string

// Pre-check and handler error kinds.
const (
	KindMethodNotAllowed           Kind = "MethodNotAllowed"
	KindUnsupportedProtocolVersion Kind = "UnsupportedProtocolVersion"
	KindSessionNotFound            Kind = "SessionNotFound"
	KindInvalidSessionId           Kind = "InvalidSessionId"
	KindSessionLockError           Kind = "SessionLockError"
	KindMissingContentType         Kind = "MissingContentType"
	KindInvalidContentType         Kind = "InvalidContentType"
	KindJsonParseError             Kind = "JsonParseError"
	KindPayloadTooLarge            Kind = "PayloadTooLarge"
	KindSecurityValidationFailed   Kind = "SecurityValidationFailed"
	KindInvalidAcceptHeader        Kind = "InvalidAcceptHeader"
	KindUnacceptableAcceptHeader   Kind = "UnacceptableAcceptHeader"
	KindInternalError              Kind = "InternalError"
)

// Error is a pre-check or transport-level failure carrying the fixed HTTP
// status its Kind maps to plus a human-readable message and a structured
// detail for the pre-check error envelope.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  any
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, status int, message string, detail any) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Detail: detail}
}

func errMethodNotAllowed(method string) *Error {
	return newError(KindMethodNotAllowed, http.StatusMethodNotAllowed,
		"method not allowed", map[string]string{"method": method})
}

func errUnsupportedProtocolVersion(got string) *Error {
	return newError(KindUnsupportedProtocolVersion, http.StatusBadRequest,
		"unsupported or missing MCP-Protocol-Version", map[string]string{"got": got, "want": ProtocolVersion})
}

func errInvalidAcceptHeader(got string) *Error {
	return newError(KindInvalidAcceptHeader, http.StatusNotAcceptable,
		"invalid Accept header", map[string]string{"got": got})
}

func errUnacceptableAcceptHeader(got string) *Error {
	return newError(KindUnacceptableAcceptHeader, http.StatusNotAcceptable,
		"Accept header does not permit any response this server can produce", map[string]string{"got": got})
}

func errSecurityValidationFailed(reason string) *Error {
	return newError(KindSecurityValidationFailed, http.StatusForbidden, "security validation failed",
		map[string]string{"reason": reason})
}

func errMissingContentType() *Error {
	return newError(KindMissingContentType, http.StatusBadRequest, "missing Content-Type header", nil)
}

func errInvalidContentType(got string) *Error {
	return newError(KindInvalidContentType, http.StatusBadRequest, "invalid Content-Type", map[string]string{"got": got})
}

func errJSONParse(cause error) *Error {
	return newError(KindJsonParseError, http.StatusBadRequest, "failed to parse JSON-RPC request",
		map[string]string{"error": cause.Error()})
}

func errPayloadTooLarge(limit int64) *Error {
	return newError(KindPayloadTooLarge, http.StatusRequestEntityTooLarge, "request body exceeds the size limit",
		map[string]int64{"max_bytes": limit})
}

func errSessionNotFound() *Error {
	return newError(KindSessionNotFound, http.StatusNotFound, "session not found", nil)
}

func errInvalidSessionID(got string) *Error {
	return newError(KindInvalidSessionId, http.StatusBadRequest, "malformed session id", map[string]string{"got": got})
}

func errInternal(cause error) *Error {
	return newError(KindInternalError, http.StatusInternalServerError, "internal error",
		map[string]string{"error": cause.Error()})
}
