package passkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/aptsaicuf/election-service/internal/challenge"
	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/storage"
	"github.com/aptsaicuf/election-service/internal/voter"
)

var (
	// ErrNoCredentials indicates the voter has no registered passkeys.
	ErrNoCredentials = apperrors.New(apperrors.CodeNoCredentialsRegistered, "no credentials registered for voter")
	// ErrCredentialNotRegistered indicates the asserted credential is unknown.
	ErrCredentialNotRegistered = apperrors.New(apperrors.CodeCredentialNotRegistered, "credential is not registered")
	// ErrVerificationFailed indicates the attestation or assertion did not verify.
	ErrVerificationFailed = apperrors.New(apperrors.CodeVerificationFailed, "credential verification failed")
	// ErrReplayDetected indicates a signature counter regression.
	ErrReplayDetected = apperrors.New(apperrors.CodeReplayDetected, "signature counter regression detected")
	// ErrVoterNotFound indicates the voter ID does not resolve.
	ErrVoterNotFound = apperrors.New(apperrors.CodeVoterNotFound, "voter not found")
)

type webauthnProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	CreateCredential(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	ValidateLogin(user webauthn.User, session webauthn.SessionData, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error)
}

type ceremonyParser interface {
	ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error)
	ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error)
}

type defaultCeremonyParser struct{}

func (defaultCeremonyParser) ParseCredentialCreationResponseBytes(data []byte) (*protocol.ParsedCredentialCreationData, error) {
	return protocol.ParseCredentialCreationResponseBytes(data)
}

func (defaultCeremonyParser) ParseCredentialRequestResponseBytes(data []byte) (*protocol.ParsedCredentialAssertionData, error) {
	return protocol.ParseCredentialRequestResponseBytes(data)
}

// Service runs both WebAuthn ceremonies against the voter and credential
// stores, holding ceremony state in the challenge store between the options
// and verify steps.
type Service struct {
	config      Config
	voters      storage.VoterStore
	credentials storage.CredentialStore
	challenges  challenge.Store
	provider    webauthnProvider
	parser      ceremonyParser
	clock       func() time.Time
	logger      *log.Logger
}

// NewService builds the ceremony service from relying party configuration.
func NewService(cfg Config, voters storage.VoterStore, credentials storage.CredentialStore, challenges challenge.Store) (*Service, error) {
	cfg.applyDefaults()
	if voters == nil {
		return nil, fmt.Errorf("voter store is required")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if challenges == nil {
		return nil, fmt.Errorf("challenge store is required")
	}

	provider, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}

	return &Service{
		config:      cfg,
		voters:      voters,
		credentials: credentials,
		challenges:  challenges,
		provider:    provider,
		parser:      defaultCeremonyParser{},
		clock:       time.Now,
		logger:      log.Default(),
	}, nil
}

// ceremonyUser adapts a voter and its stored credentials to the webauthn
// user contract. The user handle carries the voter internal ID.
type ceremonyUser struct {
	voter       voter.Voter
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte {
	return []byte(strconv.FormatInt(u.voter.ID, 10))
}

func (u *ceremonyUser) WebAuthnName() string {
	return u.voter.PublicID
}

func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.voter.Name
}

func (u *ceremonyUser) WebAuthnIcon() string {
	return ""
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

func (s *Service) loadCeremonyUser(ctx context.Context, base voter.Voter) (*ceremonyUser, error) {
	records, err := s.credentials.ListCredentialsByVoter(ctx, base.ID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	credentials := make([]webauthn.Credential, 0, len(records))
	for _, record := range records {
		decoded, err := decodeCredentialID(record.CredentialID)
		if err != nil {
			return nil, fmt.Errorf("decode credential %s: %w", record.CredentialID, err)
		}
		credentials = append(credentials, webauthn.Credential{
			ID:        decoded,
			PublicKey: record.PublicKey,
			Authenticator: webauthn.Authenticator{
				SignCount: record.SignCount,
			},
		})
	}
	return &ceremonyUser{voter: base, credentials: credentials}, nil
}

func (s *Service) resolveVoter(ctx context.Context, voterPublicID string) (voter.Voter, error) {
	v, err := s.voters.GetVoterByPublicID(ctx, voterPublicID)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.CodeNotFound {
			return voter.Voter{}, ErrVoterNotFound
		}
		return voter.Voter{}, fmt.Errorf("resolve voter: %w", err)
	}
	return v, nil
}

func (s *Service) storeSession(ctx context.Context, purpose challenge.Purpose, voterPublicID string, session *webauthn.SessionData) error {
	if session == nil {
		return fmt.Errorf("session data is required")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode ceremony session: %w", err)
	}
	return s.challenges.Put(ctx, purpose, voterPublicID, payload, s.config.ChallengeTTL)
}

// consumeSession atomically removes the ceremony session before any
// verification runs. A failed verify burns the challenge, and of two racing
// verifies only the one that removed it proceeds.
func (s *Service) consumeSession(ctx context.Context, purpose challenge.Purpose, voterPublicID string) (webauthn.SessionData, error) {
	payload, err := s.challenges.Consume(ctx, purpose, voterPublicID)
	if err != nil {
		return webauthn.SessionData{}, err
	}
	var session webauthn.SessionData
	if err := json.Unmarshal(payload, &session); err != nil {
		return webauthn.SessionData{}, fmt.Errorf("decode ceremony session: %w", err)
	}
	return session, nil
}

// encodeCredentialID renders a raw credential ID in the canonical unpadded
// base64url form used at every storage and transport boundary.
func encodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCredentialID(encoded string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(encoded)
}
