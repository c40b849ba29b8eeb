package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aptsaicuf/election-service/internal/storage"
)

// CreateCredential stores a new WebAuthn credential.
//
// The credential ID is globally unique; re-registering an existing
// authenticator fails with ErrDuplicateCredential rather than overwriting.
func (s *Store) CreateCredential(ctx context.Context, c storage.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(c.CredentialID) == "" {
		return fmt.Errorf("credential id is required")
	}
	if c.VoterID == 0 {
		return fmt.Errorf("voter id is required")
	}
	if len(c.PublicKey) == 0 {
		return fmt.Errorf("public key is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO voter_credentials (credential_id, voter_id, public_key, sign_count, created_at)
VALUES (?, ?, ?, ?, ?)
`,
		c.CredentialID,
		c.VoterID,
		c.PublicKey,
		int64(c.SignCount),
		toMillis(c.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateCredential
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential fetches a stored credential by its canonical base64url ID.
func (s *Store) GetCredential(ctx context.Context, credentialID string) (storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return storage.Credential{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Credential{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return storage.Credential{}, fmt.Errorf("credential id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT credential_id, voter_id, public_key, sign_count, flagged_at, created_at
FROM voter_credentials WHERE credential_id = ?
`, credentialID)
	return scanCredential(row)
}

// ListCredentialsByVoter returns every credential registered by a voter.
func (s *Store) ListCredentialsByVoter(ctx context.Context, voterID int64) ([]storage.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT credential_id, voter_id, public_key, sign_count, flagged_at, created_at
FROM voter_credentials WHERE voter_id = ?
`, voterID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	credentials := make([]storage.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return credentials, nil
}

// UpdateCredentialCounter persists a new signature counter.
//
// The guard keeps the stored counter monotonically non-decreasing even when
// concurrent authentications land out of order: a stale update is a no-op,
// never a regression.
func (s *Store) UpdateCredentialCounter(ctx context.Context, credentialID string, signCount uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return fmt.Errorf("credential id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE voter_credentials SET sign_count = ?2
WHERE credential_id = ?1 AND sign_count < ?2
`, credentialID, int64(signCount))
	if err != nil {
		return fmt.Errorf("update credential counter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential counter: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM voter_credentials WHERE credential_id = ?`, credentialID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update credential counter: %w", err)
	}
	return nil
}

// FlagCredential marks a credential for review after replay detection.
func (s *Store) FlagCredential(ctx context.Context, credentialID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return fmt.Errorf("credential id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE voter_credentials SET flagged_at = ? WHERE credential_id = ?
`, toMillis(at), credentialID)
	if err != nil {
		return fmt.Errorf("flag credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("flag credential: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanCredential(row rowScanner) (storage.Credential, error) {
	var c storage.Credential
	var signCount int64
	var flaggedAt sql.NullInt64
	var createdAt int64
	if err := row.Scan(&c.CredentialID, &c.VoterID, &c.PublicKey, &signCount, &flaggedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Credential{}, storage.ErrNotFound
		}
		return storage.Credential{}, fmt.Errorf("scan credential: %w", err)
	}
	c.SignCount = uint32(signCount)
	if flaggedAt.Valid {
		value := fromMillis(flaggedAt.Int64)
		c.FlaggedAt = &value
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

var _ storage.CredentialStore = (*Store)(nil)
