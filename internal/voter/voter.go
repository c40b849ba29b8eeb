// Package voter provides voter identity management.
package voter

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
)

// Status is the approval state of a voter record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	// ErrEmptyName indicates a missing voter name.
	ErrEmptyName = apperrors.New(apperrors.CodeVoterInvalid, "name is required")
	// ErrEmptyUnitName indicates a missing unit name.
	ErrEmptyUnitName = apperrors.New(apperrors.CodeVoterInvalid, "unit name is required")
	// ErrEmptyDesignation indicates a missing designation.
	ErrEmptyDesignation = apperrors.New(apperrors.CodeVoterInvalid, "designation is required")
	// ErrInvalidMobileNo indicates a mobile number outside the accepted format.
	ErrInvalidMobileNo = apperrors.New(apperrors.CodeVoterInvalid, "mobile number must be 10-15 digits")

	mobilePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
)

// Voter represents a registered voter identity record.
//
// ID is the internal datastore identifier; PublicID is the human-facing
// voter ID printed on the voter card and typed at login. PublicID is unique
// and immutable after issuance.
type Voter struct {
	ID          int64
	PublicID    string
	Name        string
	Designation string
	UnitName    string
	MobileNo    string
	Status      Status
	CreatedAt   time.Time
}

// RegistrationInput describes the fields a voter submits at registration.
type RegistrationInput struct {
	Name        string
	Designation string
	UnitName    string
	MobileNo    string
}

// ValidStatus reports whether s is one of the known approval states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// NewRegistration builds a pending voter from validated registration input.
//
// The returned voter has no internal ID yet; the store assigns one on insert.
func NewRegistration(input RegistrationInput, now func() time.Time) (Voter, error) {
	if now == nil {
		now = time.Now
	}
	normalized, err := normalizeRegistrationInput(input)
	if err != nil {
		return Voter{}, err
	}
	return Voter{
		PublicID:    NewPublicID(now),
		Name:        normalized.Name,
		Designation: normalized.Designation,
		UnitName:    normalized.UnitName,
		MobileNo:    normalized.MobileNo,
		Status:      StatusPending,
		CreatedAt:   now().UTC(),
	}, nil
}

// NewPublicID issues a human-facing voter identifier.
//
// The format matches the IDs already printed on issued voter cards:
// VOTER-<unix millis>-<4 digits>.
func NewPublicID(now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	return fmt.Sprintf("VOTER-%d-%d", now().UTC().UnixMilli(), 1000+rand.Intn(9000))
}

func normalizeRegistrationInput(input RegistrationInput) (RegistrationInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Designation = strings.TrimSpace(input.Designation)
	input.UnitName = strings.TrimSpace(input.UnitName)
	input.MobileNo = strings.TrimSpace(input.MobileNo)
	if input.Name == "" {
		return RegistrationInput{}, ErrEmptyName
	}
	if input.Designation == "" {
		return RegistrationInput{}, ErrEmptyDesignation
	}
	if input.UnitName == "" {
		return RegistrationInput{}, ErrEmptyUnitName
	}
	if !mobilePattern.MatchString(input.MobileNo) {
		return RegistrationInput{}, ErrInvalidMobileNo
	}
	return input, nil
}
