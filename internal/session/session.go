// Package session issues and verifies signed voter session tokens.
//
// Tokens are self-contained HS256 JWTs carrying the voter's internal and
// public identifiers; nothing is persisted server-side.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aptsaicuf/election-service/internal/platform/config"
	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
)

// ErrInvalidToken indicates the session token failed verification or expired.
var ErrInvalidToken = apperrors.New(apperrors.CodeInvalidOrExpiredToken, "session token is invalid or expired")

// Config defines the session signing key and lifetime.
type Config struct {
	Secret string        `env:"ELECTION_SESSION_SECRET"`
	TTL    time.Duration `env:"ELECTION_SESSION_TTL" envDefault:"24h"`
}

// LoadConfigFromEnv reads session configuration.
//
// An absent secret fails here, at startup, so a misconfigured deployment
// never serves requests with an unsigned session path.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse session env: %w", err)
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return Config{}, fmt.Errorf("ELECTION_SESSION_SECRET is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return cfg, nil
}

// Identity is the verified content of a session token.
type Identity struct {
	VoterID       int64
	VoterPublicID string
	ExpiresAt     time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	VoterPublicID string `json:"voter_public_id"`
}

// Manager signs and verifies session tokens with a symmetric key.
type Manager struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

// NewManager builds a session manager from validated configuration.
func NewManager(cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		clock:  time.Now,
	}, nil
}

// TTL reports the configured session lifetime, for cookie expiry.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for the authenticated voter.
func (m *Manager) Issue(voterID int64, voterPublicID string) (string, error) {
	if voterID == 0 {
		return "", fmt.Errorf("voter id is required")
	}
	if strings.TrimSpace(voterPublicID) == "" {
		return "", fmt.Errorf("voter public id is required")
	}

	now := m.clock().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(voterID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		VoterPublicID: voterPublicID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the embedded
// voter identity.
func (m *Manager) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return m.clock().UTC() }),
	)
	if err != nil {
		// Expired, tampered, and malformed tokens all collapse into one
		// error so the response leaks nothing about the failure.
		return Identity{}, ErrInvalidToken
	}

	voterID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || voterID == 0 {
		return Identity{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.VoterPublicID) == "" {
		return Identity{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		VoterID:       voterID,
		VoterPublicID: claims.VoterPublicID,
		ExpiresAt:     claims.ExpiresAt.Time.UTC(),
	}, nil
}
