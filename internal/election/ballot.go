package election

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/session"
	"github.com/aptsaicuf/election-service/internal/storage"
	"github.com/aptsaicuf/election-service/internal/voter"
)

var (
	// ErrIdentityMismatch indicates the claimed voter is not the session voter.
	ErrIdentityMismatch = apperrors.New(apperrors.CodeIdentityMismatch, "voter identity does not match session")
	// ErrVoterNotApproved indicates a pending or rejected voter tried to vote.
	ErrVoterNotApproved = apperrors.New(apperrors.CodeVoterNotApproved, "voter is not approved")
	// ErrEmptyBallot indicates a submission with no selections.
	ErrEmptyBallot = apperrors.New(apperrors.CodeEmptyBallot, "ballot has no selections")
)

// Selection is one (position, nomination) pair on a submitted ballot.
type Selection struct {
	Position     string
	NominationID int64
}

// BallotService validates and commits ballots.
type BallotService struct {
	voters      storage.VoterStore
	nominations storage.NominationStore
	votes       storage.VoteStore
	clock       func() time.Time
}

// NewBallotService wires the ballot transaction over its stores.
func NewBallotService(voters storage.VoterStore, nominations storage.NominationStore, votes storage.VoteStore) (*BallotService, error) {
	if voters == nil {
		return nil, fmt.Errorf("voter store is required")
	}
	if nominations == nil {
		return nil, fmt.Errorf("nomination store is required")
	}
	if votes == nil {
		return nil, fmt.Errorf("vote store is required")
	}
	return &BallotService{
		voters:      voters,
		nominations: nominations,
		votes:       votes,
		clock:       time.Now,
	}, nil
}

// Submit runs the ballot preconditions in order and commits the full ballot
// atomically.
//
// Ballots are all-or-nothing: a voter with any prior vote cannot submit
// again, and a racing duplicate submission loses to the datastore's
// uniqueness constraint with the same AlreadyVoted outcome.
func (s *BallotService) Submit(ctx context.Context, identity session.Identity, claimedPublicID string, selections []Selection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if strings.TrimSpace(claimedPublicID) == "" || claimedPublicID != identity.VoterPublicID {
		return ErrIdentityMismatch
	}

	base, err := s.voters.GetVoter(ctx, identity.VoterID)
	if err != nil {
		return fmt.Errorf("load voter: %w", err)
	}
	if base.PublicID != identity.VoterPublicID {
		return ErrIdentityMismatch
	}
	if base.Status != voter.StatusApproved {
		return ErrVoterNotApproved
	}

	count, err := s.votes.CountVotesByVoter(ctx, base.ID)
	if err != nil {
		return fmt.Errorf("count prior votes: %w", err)
	}
	if count > 0 {
		return storage.ErrAlreadyVoted
	}

	if len(selections) == 0 {
		return ErrEmptyBallot
	}

	seen := make(map[string]bool, len(selections))
	for i := range selections {
		selections[i].Position = strings.TrimSpace(selections[i].Position)
		position := selections[i].Position
		if position == "" {
			return apperrors.New(apperrors.CodeInvalidSelection, "selection position is required")
		}
		if seen[position] {
			return apperrors.WithMetadata(apperrors.CodeDuplicatePosition,
				"duplicate position in ballot",
				map[string]string{"Position": position})
		}
		seen[position] = true
	}

	now := s.clock().UTC()
	votes := make([]storage.Vote, 0, len(selections))
	for _, selection := range selections {
		nomination, err := s.nominations.GetNomination(ctx, selection.NominationID)
		if err != nil {
			if apperrors.GetCode(err) == apperrors.CodeNotFound {
				return invalidSelection(selection)
			}
			return fmt.Errorf("load nomination: %w", err)
		}
		if nomination.Status != storage.NominationStatusApproved {
			return invalidSelection(selection)
		}
		if nomination.Position != selection.Position {
			return invalidSelection(selection)
		}
		votes = append(votes, storage.Vote{
			VoterID:      base.ID,
			Position:     selection.Position,
			NominationID: nomination.ID,
			CreatedAt:    now,
		})
	}

	return s.votes.InsertBallot(ctx, base.ID, votes)
}

func invalidSelection(selection Selection) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidSelection,
		"selection does not reference an approved nomination for its position",
		map[string]string{
			"Position":     selection.Position,
			"NominationID": fmt.Sprintf("%d", selection.NominationID),
		})
}
