// Package election exposes the approved candidate slate and runs the ballot
// submission transaction.
package election

import (
	"context"
	"fmt"
	"sort"

	"github.com/aptsaicuf/election-service/internal/storage"
)

// Candidate is one approved nomination as presented on the ballot.
type Candidate struct {
	ID       int64
	Name     string
	UnitName string
}

// Contest is a position with its eligible candidates.
type Contest struct {
	Position   string
	Candidates []Candidate
}

// CurrentSlate groups approved nominations by position and keeps only
// positions with more than one candidate. A walkover position is not a
// genuine contest and never appears on the ballot.
//
// Output is deterministic for a given nomination set: contests sort by
// position, candidates by nomination ID.
func CurrentSlate(ctx context.Context, nominations storage.NominationStore) ([]Contest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if nominations == nil {
		return nil, fmt.Errorf("nomination store is not configured")
	}

	approved, err := nominations.ListApprovedNominations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved nominations: %w", err)
	}

	byPosition := make(map[string][]Candidate)
	for _, n := range approved {
		byPosition[n.Position] = append(byPosition[n.Position], Candidate{
			ID:       n.ID,
			Name:     n.Name,
			UnitName: n.UnitName,
		})
	}

	contests := make([]Contest, 0, len(byPosition))
	for position, candidates := range byPosition {
		if len(candidates) < 2 {
			continue
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
		contests = append(contests, Contest{Position: position, Candidates: candidates})
	}
	sort.Slice(contests, func(i, j int) bool { return contests[i].Position < contests[j].Position })
	return contests, nil
}
