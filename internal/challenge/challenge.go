// Package challenge stores single-use WebAuthn ceremony state.
//
// Each ceremony holds exactly one live challenge per (purpose, voter) key.
// A second begin call overwrites the previous challenge; a verify call
// consumes it exactly once, whether verification succeeds or fails.
package challenge

import (
	"context"
	"time"

	"github.com/aptsaicuf/election-service/internal/platform/errors"
)

// Purpose discriminates registration and login ceremonies so a challenge
// issued for one can never verify the other.
type Purpose string

const (
	PurposeRegister Purpose = "register"
	PurposeLogin    Purpose = "login"
)

// ErrNotFound indicates the challenge is absent or expired.
var ErrNotFound = errors.New(errors.CodeChallengeExpired, "challenge expired or not found")

// Store is the ephemeral challenge contract shared by both ceremonies.
//
// Deployments running more than one service instance must use a store backed
// by the shared datastore; the in-process implementation in this package is
// for single-instance and test use only and loses challenges across
// instances and restarts.
type Store interface {
	// Put stores value under (purpose, voterID), overwriting any existing
	// entry, with expiry after ttl.
	Put(ctx context.Context, purpose Purpose, voterID string, value []byte, ttl time.Duration) error
	// Get returns the stored value, or ErrNotFound after expiry or if never set.
	Get(ctx context.Context, purpose Purpose, voterID string) ([]byte, error)
	// Delete removes the entry immediately. Deleting an absent entry is not
	// an error.
	Delete(ctx context.Context, purpose Purpose, voterID string) error
	// Consume atomically removes and returns the stored value. Exactly one
	// of two racing callers gets the value; the other gets ErrNotFound.
	Consume(ctx context.Context, purpose Purpose, voterID string) ([]byte, error)
}
