package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aptsaicuf/election-service/internal/challenge"
)

// ChallengeStore keeps ceremony challenges in the shared SQLite database so
// every service instance sees the same single live challenge per ceremony.
type ChallengeStore struct {
	store *Store
	clock func() time.Time
}

// NewChallengeStore wraps the SQLite store as a challenge.Store.
func NewChallengeStore(store *Store) *ChallengeStore {
	return &ChallengeStore{store: store, clock: time.Now}
}

// Put stores the challenge, replacing any live one for the same ceremony.
func (c *ChallengeStore) Put(ctx context.Context, purpose challenge.Purpose, voterID string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.store == nil || c.store.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(voterID) == "" {
		return fmt.Errorf("voter id is required")
	}
	if len(value) == 0 {
		return fmt.Errorf("challenge value is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("challenge ttl must be positive")
	}

	expiresAt := c.clock().Add(ttl)
	_, err := c.store.sqlDB.ExecContext(ctx, `
INSERT INTO ceremony_challenges (purpose, voter_public_id, value, expires_at)
VALUES (?1, ?2, ?3, ?4)
ON CONFLICT (purpose, voter_public_id) DO UPDATE SET value = ?3, expires_at = ?4
`,
		string(purpose),
		voterID,
		value,
		toMillis(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

// Get returns the live challenge, treating an expired row as absent.
func (c *ChallengeStore) Get(ctx context.Context, purpose challenge.Purpose, voterID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil || c.store == nil || c.store.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var value []byte
	var expiresAt int64
	err := c.store.sqlDB.QueryRowContext(ctx, `
SELECT value, expires_at FROM ceremony_challenges
WHERE purpose = ? AND voter_public_id = ?
`, string(purpose), voterID).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, challenge.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if !c.clock().Before(fromMillis(expiresAt)) {
		_ = c.Delete(ctx, purpose, voterID)
		return nil, challenge.ErrNotFound
	}
	return value, nil
}

// Consume deletes and returns the challenge in one statement, so of two
// racing verifies only the one that removed the row proceeds.
func (c *ChallengeStore) Consume(ctx context.Context, purpose challenge.Purpose, voterID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c == nil || c.store == nil || c.store.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var value []byte
	var expiresAt int64
	err := c.store.sqlDB.QueryRowContext(ctx, `
DELETE FROM ceremony_challenges
WHERE purpose = ? AND voter_public_id = ?
RETURNING value, expires_at
`, string(purpose), voterID).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, challenge.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	if !c.clock().Before(fromMillis(expiresAt)) {
		return nil, challenge.ErrNotFound
	}
	return value, nil
}

// Delete removes the challenge; deleting an absent row is not an error.
func (c *ChallengeStore) Delete(ctx context.Context, purpose challenge.Purpose, voterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil || c.store == nil || c.store.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := c.store.sqlDB.ExecContext(ctx, `
DELETE FROM ceremony_challenges WHERE purpose = ? AND voter_public_id = ?
`, string(purpose), voterID)
	if err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

var _ challenge.Store = (*ChallengeStore)(nil)
