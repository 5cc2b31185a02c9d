package instruction

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRequestBody      = errors.New("invalid request body")
	ErrMissingField            = errors.New("missing required field")
	ErrInvalidAddress          = errors.New("invalid pubkey")
	ErrInvalidSecret           = errors.New("invalid secret key")
	ErrInvalidSignatureFormat  = errors.New("invalid signature format")
	ErrAmountMustBePositive    = errors.New("amount must be greater than 0")
	ErrSameAddress             = errors.New("addresses cannot be the same")
	ErrInstructionBuildFailure = errors.New("failed to build instruction")
)

// requestError pairs one of the error kinds above with the detail that
// triggered it. The kind is recoverable with errors.Cause or errors.Is.
type requestError struct {
	kind   error
	detail string
}

func newRequestError(kind error, detail string) error {
	return &requestError{kind: kind, detail: detail}
}

func (e *requestError) Error() string {
	if len(e.detail) == 0 {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.detail
}

func (e *requestError) Cause() error {
	return e.kind
}

func (e *requestError) Unwrap() error {
	return e.kind
}

func newBuildFailure(err error) error {
	return newRequestError(ErrInstructionBuildFailure, err.Error())
}

// isValidationError reports whether err was caused by the caller's input
// rather than a failure while building the result.
func isValidationError(err error) bool {
	switch errors.Cause(err) {
	case ErrInvalidRequestBody,
		ErrMissingField,
		ErrInvalidAddress,
		ErrInvalidSecret,
		ErrInvalidSignatureFormat,
		ErrAmountMustBePositive,
		ErrSameAddress:
		return true
	}
	return false
}

// httpStatusForError maps an error kind to the status used when conventional
// error statuses are enabled.
func httpStatusForError(err error) int {
	if isValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
