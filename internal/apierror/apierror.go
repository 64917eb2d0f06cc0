// Package apierror provides the error envelopes returned to clients. Every
// 4xx/5xx body goes through here so internals (DB errors, stack traces) never leak.
package apierror

// APIError is the canonical error envelope. Kind, when set, names the failure
// class (conflict, not_found, forbidden) so the UI can pick a specific message.
type APIError struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func NewKind(kind, msg string) *APIError {
	return &APIError{Detail: msg, Kind: kind}
}

// ValidationError wraps per-field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return NewValidationMsg("Error de validacion", fields)
}

func NewValidationMsg(msg string, fields map[string]string) *ValidationError {
	return &ValidationError{Detail: msg, Kind: "validation", Fields: fields}
}
