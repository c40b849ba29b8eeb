package sqlite

import (
	"context"
	"fmt"

	"github.com/aptsaicuf/election-service/internal/storage"
)

// InsertBallot commits a full ballot in one transaction.
//
// The in-transaction vote count recheck plus the UNIQUE(voter_id, position)
// constraint make a racing duplicate submission fail with ErrAlreadyVoted
// instead of splitting the ballot.
func (s *Store) InsertBallot(ctx context.Context, voterID int64, votes []storage.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(votes) == 0 {
		return fmt.Errorf("ballot is empty")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ballot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE voter_id = ?`, voterID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("count existing votes: %w", err)
	}
	if existing > 0 {
		return storage.ErrAlreadyVoted
	}

	for _, v := range votes {
		_, err := tx.ExecContext(ctx, `
INSERT INTO votes (voter_id, position, nomination_id, created_at)
VALUES (?, ?, ?, ?)
`,
			voterID,
			v.Position,
			v.NominationID,
			toMillis(v.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyVoted
			}
			return fmt.Errorf("insert vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyVoted
		}
		return fmt.Errorf("commit ballot: %w", err)
	}
	return nil
}

// CountVotesByVoter reports how many votes a voter has on record.
func (s *Store) CountVotesByVoter(ctx context.Context, voterID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var count int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE voter_id = ?`, voterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// ListVotesByVoter returns a voter's recorded votes ordered by position.
func (s *Store) ListVotesByVoter(ctx context.Context, voterID int64) ([]storage.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT voter_id, position, nomination_id, created_at
FROM votes WHERE voter_id = ?
ORDER BY position
`, voterID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := make([]storage.Vote, 0)
	for rows.Next() {
		var v storage.Vote
		var createdAt int64
		if err := rows.Scan(&v.VoterID, &v.Position, &v.NominationID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.CreatedAt = fromMillis(createdAt)
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

var _ storage.VoteStore = (*Store)(nil)
