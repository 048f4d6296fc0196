package utils

// Error codes returned to API clients
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeEncodingMismatch = "ENCODING_MISMATCH"
	CodeMessageTooLong   = "MESSAGE_TOO_LONG"
	CodeOTPAlreadyActive = "OTP_ALREADY_ACTIVE"
	CodeInvalidOTP       = "INVALID_OTP"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeQueueFailed      = "QUEUE_PROCESSING_FAILED"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Violation describes one rejected request field
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIResponse is the JSON envelope of every API reply
type APIResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Code       string      `json:"code,omitempty"`
	Data       any         `json:"data,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
}

// OK builds a successful response
func OK(message string, data any) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

// Fail builds an error response
func Fail(message, code string, violations ...Violation) APIResponse {
	return APIResponse{Success: false, Message: message, Code: code, Violations: violations}
}
