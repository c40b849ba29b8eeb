package passkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/challenge"
	"github.com/aptsaicuf/election-service/internal/storage"
)

// BeginRegistration starts the attestation ceremony for a voter and returns
// the credential creation options for the client.
//
// Starting a second ceremony replaces the previous challenge; only the most
// recent options can complete.
func (s *Service) BeginRegistration(ctx context.Context, voterPublicID string) (*protocol.CredentialCreation, error) {
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

	options := []webauthn.RegistrationOption{
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:      protocol.ResidentKeyRequirementPreferred,
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
	}
	if len(user.credentials) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(user.credentials).CredentialDescriptors()))
	}

	creation, session, err := s.provider.BeginRegistration(user, options...)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}
	if err := s.storeSession(ctx, challenge.PurposeRegister, voterPublicID, session); err != nil {
		return nil, fmt.Errorf("store ceremony session: %w", err)
	}
	return creation, nil
}

// FinishRegistration verifies the attestation response and stores the new
// credential. It returns the canonical base64url credential ID.
func (s *Service) FinishRegistration(ctx context.Context, voterPublicID string, attestationResponse []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	voterPublicID = strings.TrimSpace(voterPublicID)
	if voterPublicID == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "voter id is required")
	}
	if len(attestationResponse) == 0 {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "attestation response is required")
	}

	base, err := s.resolveVoter(ctx, voterPublicID)
	if err != nil {
		return "", err
	}
	user, err := s.loadCeremonyUser(ctx, base)
	if err != nil {
		return "", err
	}

	session, err := s.consumeSession(ctx, challenge.PurposeRegister, voterPublicID)
	if err != nil {
		return "", err
	}

	parsed, err := s.parser.ParseCredentialCreationResponseBytes(attestationResponse)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeVerificationFailed, "parse attestation response", err)
	}

	credential, err := s.provider.CreateCredential(user, session, parsed)
	if err != nil {
		s.logVerificationFailure("registration", voterPublicID, parsed.Response.CollectedClientData.Origin, err)
		return "", apperrors.Wrap(apperrors.CodeVerificationFailed, "verify attestation response", err)
	}

	credentialID := encodeCredentialID(credential.ID)
	if err := s.credentials.CreateCredential(ctx, storage.Credential{
		CredentialID: credentialID,
		VoterID:      base.ID,
		PublicKey:    credential.PublicKey,
		SignCount:    credential.Authenticator.SignCount,
		CreatedAt:    s.clock().UTC(),
	}); err != nil {
		return "", err
	}
	return credentialID, nil
}

// logVerificationFailure records the relying party expectations next to the
// client-reported origin. Origin and RPID mismatches are the most common
// deployment misconfiguration.
func (s *Service) logVerificationFailure(ceremony, voterPublicID, clientOrigin string, err error) {
	s.logger.Printf("passkey %s verification failed for voter %s: expected rp_id=%s origins=%v, client origin=%s: %v",
		ceremony, voterPublicID, s.config.RPID, s.config.RPOrigins, clientOrigin, err)
}
