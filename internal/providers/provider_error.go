package providers

import (
	"errors"
	"fmt"

	"infinite-experiment/reconboard/internal/constants"
)

// ProviderError describes a failed call to the playground backend.
// StatusCode is 0 when no HTTP exchange happened.
type ProviderError struct {
	Code       string
	Message    string
	Details    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code string) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code == code
	}
	return false
}

// IsNotFound reports a 404-class failure.
func IsNotFound(err error) bool {
	return hasCode(err, constants.ErrCodeNotFound)
}

// IsCredentialMissing reports a local failure raised before any network call.
func IsCredentialMissing(err error) bool {
	return hasCode(err, constants.ErrCodeCredentialMissing)
}

// IsMalformed reports a 400-class failure or a locally rejected identifier.
func IsMalformed(err error) bool {
	return hasCode(err, constants.ErrCodeMalformedIdentifier)
}

// IsAuthFailure reports a 401/403 from the backend.
func IsAuthFailure(err error) bool {
	return hasCode(err, constants.ErrCodeAuthenticationFailed)
}
