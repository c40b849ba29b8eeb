package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Voter errors
	CodeVoterNotFound    Code = "VOTER_NOT_FOUND"
	CodeVoterNotApproved Code = "VOTER_NOT_APPROVED"
	CodeVoterInvalid     Code = "VOTER_INVALID"

	// Ceremony errors
	CodeChallengeExpired         Code = "CHALLENGE_EXPIRED"
	CodeVerificationFailed       Code = "VERIFICATION_FAILED"
	CodeNoCredentialsRegistered  Code = "NO_CREDENTIALS_REGISTERED"
	CodeCredentialNotRegistered  Code = "CREDENTIAL_NOT_REGISTERED"
	CodeDuplicateCredential      Code = "DUPLICATE_CREDENTIAL"
	CodeReplayDetected           Code = "REPLAY_DETECTED"

	// Session errors
	CodeInvalidOrExpiredToken Code = "INVALID_OR_EXPIRED_TOKEN"

	// Ballot errors
	CodeIdentityMismatch  Code = "IDENTITY_MISMATCH"
	CodeAlreadyVoted      Code = "ALREADY_VOTED"
	CodeEmptyBallot       Code = "EMPTY_BALLOT"
	CodeDuplicatePosition Code = "DUPLICATE_POSITION"
	CodeInvalidSelection  Code = "INVALID_SELECTION"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation and protocol verification failures
	case CodeVoterInvalid,
		CodeChallengeExpired,
		CodeVerificationFailed,
		CodeEmptyBallot,
		CodeDuplicatePosition,
		CodeInvalidSelection,
		CodeInvalidArgument:
		return http.StatusBadRequest

	// Unauthorized - missing or invalid session
	case CodeInvalidOrExpiredToken:
		return http.StatusUnauthorized

	// Forbidden - authenticated but not allowed
	case CodeIdentityMismatch,
		CodeVoterNotApproved:
		return http.StatusForbidden

	// Not found
	case CodeVoterNotFound,
		CodeNoCredentialsRegistered,
		CodeCredentialNotRegistered,
		CodeNotFound:
		return http.StatusNotFound

	// Conflict - terminal, the client must not retry
	case CodeAlreadyVoted,
		CodeDuplicateCredential,
		CodeReplayDetected:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
