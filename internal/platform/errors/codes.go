// Package errors provides structured error handling for the auth and
// trip-access core.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Ceremony errors
	CodeChallengeExpired  Code = "CHALLENGE_EXPIRED"
	CodeChallengeNotFound Code = "CHALLENGE_NOT_FOUND"
	CodeSignatureInvalid  Code = "SIGNATURE_INVALID"
	CodeCounterReplay     Code = "COUNTER_REPLAY"

	// Account errors
	CodeAccountNotFound     Code = "ACCOUNT_NOT_FOUND"
	CodeDuplicateAccount    Code = "DUPLICATE_ACCOUNT"
	CodeAccountEmptyEmail   Code = "ACCOUNT_EMPTY_EMAIL"
	CodeAccountInvalidEmail Code = "ACCOUNT_INVALID_EMAIL"

	// Credential errors
	CodeCredentialNotFound  Code = "CREDENTIAL_NOT_FOUND"
	CodeDuplicateCredential Code = "DUPLICATE_CREDENTIAL"

	// Session token errors
	CodeTokenInvalid Code = "TOKEN_INVALID"
	CodeTokenExpired Code = "TOKEN_EXPIRED"

	// Access errors
	CodeAccessDenied Code = "ACCESS_DENIED"

	// Invite errors
	CodeInviteNotFound    Code = "INVITE_NOT_FOUND"
	CodeInviteExpired     Code = "INVITE_EXPIRED"
	CodeInviteAlreadyUsed Code = "INVITE_ALREADY_USED"
	CodeEmptyTripSet      Code = "EMPTY_TRIP_SET"
	CodeInviteInvalidRole Code = "INVITE_INVALID_ROLE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Unauthorized - authentication failures
	case CodeChallengeExpired,
		CodeChallengeNotFound,
		CodeSignatureInvalid,
		CodeCounterReplay,
		CodeCredentialNotFound,
		CodeTokenInvalid,
		CodeTokenExpired:
		return http.StatusUnauthorized

	// Forbidden - authorization failures
	case CodeAccessDenied:
		return http.StatusForbidden

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeAccountNotFound,
		CodeInviteNotFound:
		return http.StatusNotFound

	// Conflict - unique resource constraint or terminal state
	case CodeDuplicateAccount,
		CodeDuplicateCredential,
		CodeInviteAlreadyUsed:
		return http.StatusConflict

	// Gone - time-bounded resource elapsed
	case CodeInviteExpired:
		return http.StatusGone

	// BadRequest - validation failures, bad input
	case CodeAccountEmptyEmail,
		CodeAccountInvalidEmail,
		CodeEmptyTripSet,
		CodeInviteInvalidRole:
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// IsCeremonyFailure reports whether the code belongs to the set of
// authentication ceremony failures that external surfaces must collapse into
// one generic outcome, so callers cannot probe which check failed or whether
// an account exists.
func (c Code) IsCeremonyFailure() bool {
	switch c {
	case CodeChallengeExpired,
		CodeChallengeNotFound,
		CodeSignatureInvalid,
		CodeCounterReplay,
		CodeCredentialNotFound,
		CodeAccountNotFound:
		return true
	default:
		return false
	}
}
