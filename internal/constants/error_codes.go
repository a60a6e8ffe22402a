package constants

// Error codes for calls to the playground backend and the reconciliation workflow

// Credential-related errors
const (
	ErrCodeCredentialMissing    = "CREDENTIAL_MISSING"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
)

// Request/response errors
const (
	ErrCodeMalformedIdentifier = "MALFORMED_IDENTIFIER"
	ErrCodeNotFound            = "RESOURCE_NOT_FOUND"
	ErrCodeBackendFailure      = "BACKEND_FAILURE"
	ErrCodeNetworkError        = "NETWORK_ERROR"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInvalidDataFormat   = "INVALID_DATA_FORMAT"
)

// Mapping workflow errors
const (
	ErrCodeEmptyFieldMap  = "EMPTY_FIELD_MAP"
	ErrCodeInvalidPairing = "INVALID_PAIRING"
)

var ErrorMessages = map[string]string{
	ErrCodeCredentialMissing:    "No credential available for the playground backend",
	ErrCodeAuthenticationFailed: "The playground backend rejected the credential",

	ErrCodeMalformedIdentifier: "The identifier is malformed",
	ErrCodeNotFound:            "The requested resource was not found",
	ErrCodeBackendFailure:      "The playground backend failed to process the request",
	ErrCodeNetworkError:        "Unable to reach the playground backend",
	ErrCodeRateLimited:         "Rate limit exceeded. Please try again later",
	ErrCodeInvalidDataFormat:   "The data format is invalid",

	ErrCodeEmptyFieldMap:  "A mapping needs at least one field pair",
	ErrCodeInvalidPairing: "Select one field on each side before confirming",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}

// User-facing messages
const (
	MsgStatusUnknown      = "Unable to determine status"
	MsgFileNotFound       = "File not found"
	MsgResultNotAvailable = "Result not yet available"
	MsgMappingCreated     = "Mapping created"
	MsgMappingUpdated     = "Mapping updated"
	MsgMappingDeleted     = "Mapping deleted"
	MsgRunTriggered       = "Reconciliation run triggered"
)
