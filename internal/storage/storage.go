// Package storage defines the persistence contracts for the election service.
package storage

import (
	"context"
	"time"

	"github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/voter"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrDuplicateCredential indicates the credential ID is already registered.
var ErrDuplicateCredential = errors.New(errors.CodeDuplicateCredential, "credential is already registered")

// ErrAlreadyVoted indicates the voter already has votes on record.
var ErrAlreadyVoted = errors.New(errors.CodeAlreadyVoted, "voter has already voted")

// VoterStore persists voter identity records.
type VoterStore interface {
	// CreateVoter inserts a voter and returns it with the assigned internal ID.
	CreateVoter(ctx context.Context, v voter.Voter) (voter.Voter, error)
	GetVoter(ctx context.Context, id int64) (voter.Voter, error)
	GetVoterByPublicID(ctx context.Context, publicID string) (voter.Voter, error)
	// UpdateVoterStatus is the administrative approval transition.
	UpdateVoterStatus(ctx context.Context, id int64, status voter.Status) error
	// DeleteVoter removes a voter; credentials and votes cascade.
	DeleteVoter(ctx context.Context, id int64) error
}

// Credential stores one WebAuthn credential for a voter.
//
// CredentialID is unpadded base64url, the canonical encoding at this
// boundary; callers normalize before lookup and insert.
type Credential struct {
	CredentialID string
	VoterID      int64
	PublicKey    []byte
	SignCount    uint32
	FlaggedAt    *time.Time
	CreatedAt    time.Time
}

// CredentialStore persists WebAuthn credentials and their replay counters.
type CredentialStore interface {
	// CreateCredential fails with ErrDuplicateCredential when the credential
	// ID exists globally, never silently overwriting.
	CreateCredential(ctx context.Context, c Credential) error
	GetCredential(ctx context.Context, credentialID string) (Credential, error)
	ListCredentialsByVoter(ctx context.Context, voterID int64) ([]Credential, error)
	// UpdateCredentialCounter persists a new signature counter. The stored
	// value never decreases; a stale update is a no-op. Fails with
	// ErrNotFound when the credential no longer exists.
	UpdateCredentialCounter(ctx context.Context, credentialID string, signCount uint32) error
	// FlagCredential marks a credential for review after replay detection.
	FlagCredential(ctx context.Context, credentialID string, at time.Time) error
}

// NominationStatus mirrors the approval state managed by the nomination
// collaborator; this service reads nominations, it never writes them outside
// of tests and seeding.
const NominationStatusApproved = "approved"

// Nomination is a position-scoped candidate record.
type Nomination struct {
	ID        int64
	Name      string
	UnitName  string
	Position  string
	Status    string
	CreatedAt time.Time
}

// NominationStore reads candidate records owned by the nomination collaborator.
type NominationStore interface {
	CreateNomination(ctx context.Context, n Nomination) (Nomination, error)
	GetNomination(ctx context.Context, id int64) (Nomination, error)
	ListApprovedNominations(ctx context.Context) ([]Nomination, error)
}

// Vote links a voter to one approved nomination for one position.
type Vote struct {
	VoterID      int64
	Position     string
	NominationID int64
	CreatedAt    time.Time
}

// VoteStore persists cast ballots.
type VoteStore interface {
	// InsertBallot commits every vote in one atomic transaction. It fails
	// with ErrAlreadyVoted when the voter has any prior vote, including a
	// concurrent submission racing this one; the UNIQUE(voter_id, position)
	// constraint is the backstop.
	InsertBallot(ctx context.Context, voterID int64, votes []Vote) error
	CountVotesByVoter(ctx context.Context, voterID int64) (int64, error)
	ListVotesByVoter(ctx context.Context, voterID int64) ([]Vote, error)
}
