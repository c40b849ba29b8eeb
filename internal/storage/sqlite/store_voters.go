package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aptsaicuf/election-service/internal/storage"
	"github.com/aptsaicuf/election-service/internal/voter"
)

// CreateVoter inserts a voter record and returns it with the assigned ID.
func (s *Store) CreateVoter(ctx context.Context, v voter.Voter) (voter.Voter, error) {
	if err := ctx.Err(); err != nil {
		return voter.Voter{}, err
	}
	if s == nil || s.sqlDB == nil {
		return voter.Voter{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(v.PublicID) == "" {
		return voter.Voter{}, fmt.Errorf("voter public id is required")
	}
	if !voter.ValidStatus(v.Status) {
		return voter.Voter{}, fmt.Errorf("invalid voter status %q", v.Status)
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO voters (public_id, name, designation, unit_name, mobile_no, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		v.PublicID,
		v.Name,
		v.Designation,
		v.UnitName,
		v.MobileNo,
		string(v.Status),
		toMillis(v.CreatedAt),
	)
	if err != nil {
		return voter.Voter{}, fmt.Errorf("insert voter: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return voter.Voter{}, fmt.Errorf("voter insert id: %w", err)
	}
	v.ID = id
	return v, nil
}

// GetVoter fetches a voter by internal ID.
func (s *Store) GetVoter(ctx context.Context, id int64) (voter.Voter, error) {
	if err := ctx.Err(); err != nil {
		return voter.Voter{}, err
	}
	if s == nil || s.sqlDB == nil {
		return voter.Voter{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, public_id, name, designation, unit_name, mobile_no, status, created_at
FROM voters WHERE id = ?
`, id)
	return scanVoter(row)
}

// GetVoterByPublicID resolves the human-facing voter ID.
func (s *Store) GetVoterByPublicID(ctx context.Context, publicID string) (voter.Voter, error) {
	if err := ctx.Err(); err != nil {
		return voter.Voter{}, err
	}
	if s == nil || s.sqlDB == nil {
		return voter.Voter{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(publicID) == "" {
		return voter.Voter{}, fmt.Errorf("voter public id is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, public_id, name, designation, unit_name, mobile_no, status, created_at
FROM voters WHERE public_id = ?
`, publicID)
	return scanVoter(row)
}

// UpdateVoterStatus applies the administrative approval transition.
func (s *Store) UpdateVoterStatus(ctx context.Context, id int64, status voter.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if !voter.ValidStatus(status) {
		return fmt.Errorf("invalid voter status %q", status)
	}
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE voters SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update voter status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update voter status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteVoter removes a voter; credentials and votes cascade.
func (s *Store) DeleteVoter(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM voters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete voter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete voter: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoter(row rowScanner) (voter.Voter, error) {
	var v voter.Voter
	var status string
	var createdAt int64
	if err := row.Scan(&v.ID, &v.PublicID, &v.Name, &v.Designation, &v.UnitName, &v.MobileNo, &status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return voter.Voter{}, storage.ErrNotFound
		}
		return voter.Voter{}, fmt.Errorf("scan voter: %w", err)
	}
	v.Status = voter.Status(status)
	v.CreatedAt = fromMillis(createdAt)
	return v, nil
}

var _ storage.VoterStore = (*Store)(nil)
