package passkey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/challenge"
	"github.com/aptsaicuf/election-service/internal/storage"
	"github.com/aptsaicuf/election-service/internal/voter"
)

// BeginLogin starts the assertion ceremony for a voter and returns the
// credential request options, restricted to the voter's registered
// credentials.
func (s *Service) BeginLogin(ctx context.Context, voterPublicID string) (*protocol.CredentialAssertion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	voterPublicID = strings.TrimSpace(voterPublicID)
	if voterPublicID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "voter id is required")
	}

	base, err := s.resolveVoter(ctx, voterPublicID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadCeremonyUser(ctx, base)
	if err != nil {
		return nil, err
	}
	if len(user.credentials) == 0 {
		return nil, ErrNoCredentials
	}

	assertion, session, err := s.provider.BeginLogin(user,
		webauthn.WithUserVerification(protocol.VerificationRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}
	if err := s.storeSession(ctx, challenge.PurposeLogin, voterPublicID, session); err != nil {
		return nil, fmt.Errorf("store ceremony session: %w", err)
	}
	return assertion, nil
}

// FinishLogin verifies the assertion response and returns the authenticated
// voter.
//
// A signature counter regression flags the credential and fails with
// ErrReplayDetected. Authenticators without counter support report zero on
// both sides and pass.
func (s *Service) FinishLogin(ctx context.Context, voterPublicID string, assertionResponse []byte) (voter.Voter, error) {
	if err := ctx.Err(); err != nil {
		return voter.Voter{}, err
	}
	voterPublicID = strings.TrimSpace(voterPublicID)
	if voterPublicID == "" {
		return voter.Voter{}, apperrors.New(apperrors.CodeInvalidArgument, "voter id is required")
	}
	if len(assertionResponse) == 0 {
		return voter.Voter{}, apperrors.New(apperrors.CodeInvalidArgument, "assertion response is required")
	}

	base, err := s.resolveVoter(ctx, voterPublicID)
	if err != nil {
		return voter.Voter{}, err
	}
	user, err := s.loadCeremonyUser(ctx, base)
	if err != nil {
		return voter.Voter{}, err
	}

	session, err := s.consumeSession(ctx, challenge.PurposeLogin, voterPublicID)
	if err != nil {
		return voter.Voter{}, err
	}

	parsed, err := s.parser.ParseCredentialRequestResponseBytes(assertionResponse)
	if err != nil {
		return voter.Voter{}, apperrors.Wrap(apperrors.CodeVerificationFailed, "parse assertion response", err)
	}

	credentialID := encodeCredentialID(parsed.RawID)
	stored, err := s.credentials.GetCredential(ctx, credentialID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return voter.Voter{}, ErrCredentialNotRegistered
		}
		return voter.Voter{}, fmt.Errorf("resolve credential: %w", err)
	}
	if stored.VoterID != base.ID {
		return voter.Voter{}, ErrCredentialNotRegistered
	}

	validated, err := s.provider.ValidateLogin(user, session, parsed)
	if err != nil {
		s.logVerificationFailure("login", voterPublicID, parsed.Response.CollectedClientData.Origin, err)
		return voter.Voter{}, apperrors.Wrap(apperrors.CodeVerificationFailed, "verify assertion response", err)
	}

	if validated.Authenticator.CloneWarning {
		if err := s.credentials.FlagCredential(ctx, credentialID, s.clock().UTC()); err != nil {
			s.logger.Printf("flag credential %s after counter regression: %v", credentialID, err)
		}
		return voter.Voter{}, ErrReplayDetected
	}

	if err := s.credentials.UpdateCredentialCounter(ctx, credentialID, validated.Authenticator.SignCount); err != nil {
		return voter.Voter{}, fmt.Errorf("update credential counter: %w", err)
	}
	return base, nil
}
