package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/aptsaicuf/election-service/internal/storage"
)

// CreateNomination inserts a candidate record.
//
// Nominations are owned by the nomination-management collaborator; this
// writer exists for that collaborator, seeding, and tests.
func (s *Store) CreateNomination(ctx context.Context, n storage.Nomination) (storage.Nomination, error) {
	if err := ctx.Err(); err != nil {
		return storage.Nomination{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Nomination{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(n.Name) == "" {
		return storage.Nomination{}, fmt.Errorf("nomination name is required")
	}
	if strings.TrimSpace(n.Position) == "" {
		return storage.Nomination{}, fmt.Errorf("nomination position is required")
	}
	if strings.TrimSpace(n.Status) == "" {
		n.Status = "pending"
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO nominations (name, unit_name, position, status, created_at)
VALUES (?, ?, ?, ?, ?)
`,
		n.Name,
		n.UnitName,
		n.Position,
		n.Status,
		toMillis(n.CreatedAt),
	)
	if err != nil {
		return storage.Nomination{}, fmt.Errorf("insert nomination: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return storage.Nomination{}, fmt.Errorf("nomination insert id: %w", err)
	}
	n.ID = id
	return n, nil
}

// GetNomination fetches one candidate record by ID.
func (s *Store) GetNomination(ctx context.Context, id int64) (storage.Nomination, error) {
	if err := ctx.Err(); err != nil {
		return storage.Nomination{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Nomination{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, unit_name, position, status, created_at
FROM nominations WHERE id = ?
`, id)
	return scanNomination(row)
}

// ListApprovedNominations returns every approved candidate, ordered by
// position then ID so slate output is deterministic.
func (s *Store) ListApprovedNominations(ctx context.Context) ([]storage.Nomination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, unit_name, position, status, created_at
FROM nominations WHERE status = ?
ORDER BY position, id
`, storage.NominationStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved nominations: %w", err)
	}
	defer rows.Close()

	nominations := make([]storage.Nomination, 0)
	for rows.Next() {
		n, err := scanNomination(rows)
		if err != nil {
			return nil, err
		}
		nominations = append(nominations, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list approved nominations: %w", err)
	}
	return nominations, nil
}

func scanNomination(row rowScanner) (storage.Nomination, error) {
	var n storage.Nomination
	var createdAt int64
	if err := row.Scan(&n.ID, &n.Name, &n.UnitName, &n.Position, &n.Status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Nomination{}, storage.ErrNotFound
		}
		return storage.Nomination{}, fmt.Errorf("scan nomination: %w", err)
	}
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

var _ storage.NominationStore = (*Store)(nil)
