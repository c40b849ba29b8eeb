package election

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/session"
	"github.com/aptsaicuf/election-service/internal/storage"
	"github.com/aptsaicuf/election-service/internal/voter"
)

type fakeNominationStore struct {
	nominations map[int64]storage.Nomination
	listErr     error
}

func newFakeNominationStore() *fakeNominationStore {
	return &fakeNominationStore{nominations: make(map[int64]storage.Nomination)}
}

func (s *fakeNominationStore) CreateNomination(_ context.Context, n storage.Nomination) (storage.Nomination, error) {
	n.ID = int64(len(s.nominations) + 1)
	s.nominations[n.ID] = n
	return n, nil
}

func (s *fakeNominationStore) GetNomination(_ context.Context, id int64) (storage.Nomination, error) {
	n, ok := s.nominations[id]
	if !ok {
		return storage.Nomination{}, storage.ErrNotFound
	}
	return n, nil
}

func (s *fakeNominationStore) ListApprovedNominations(_ context.Context) ([]storage.Nomination, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	approved := make([]storage.Nomination, 0)
	for _, n := range s.nominations {
		if n.Status == storage.NominationStatusApproved {
			approved = append(approved, n)
		}
	}
	return approved, nil
}

type fakeVoterStore struct {
	voters map[int64]voter.Voter
}

func newFakeVoterStore() *fakeVoterStore {
	return &fakeVoterStore{voters: make(map[int64]voter.Voter)}
}

func (s *fakeVoterStore) CreateVoter(_ context.Context, v voter.Voter) (voter.Voter, error) {
	v.ID = int64(len(s.voters) + 1)
	s.voters[v.ID] = v
	return v, nil
}

func (s *fakeVoterStore) GetVoter(_ context.Context, id int64) (voter.Voter, error) {
	v, ok := s.voters[id]
	if !ok {
		return voter.Voter{}, storage.ErrNotFound
	}
	return v, nil
}

func (s *fakeVoterStore) GetVoterByPublicID(_ context.Context, publicID string) (voter.Voter, error) {
	for _, v := range s.voters {
		if v.PublicID == publicID {
			return v, nil
		}
	}
	return voter.Voter{}, storage.ErrNotFound
}

func (s *fakeVoterStore) UpdateVoterStatus(_ context.Context, id int64, status voter.Status) error {
	v, ok := s.voters[id]
	if !ok {
		return storage.ErrNotFound
	}
	v.Status = status
	s.voters[id] = v
	return nil
}

func (s *fakeVoterStore) DeleteVoter(_ context.Context, id int64) error {
	delete(s.voters, id)
	return nil
}

type fakeVoteStore struct {
	votes map[int64][]storage.Vote
}

func newFakeVoteStore() *fakeVoteStore {
	return &fakeVoteStore{votes: make(map[int64][]storage.Vote)}
}

func (s *fakeVoteStore) InsertBallot(_ context.Context, voterID int64, votes []storage.Vote) error {
	if len(s.votes[voterID]) > 0 {
		return storage.ErrAlreadyVoted
	}
	s.votes[voterID] = append(s.votes[voterID], votes...)
	return nil
}

func (s *fakeVoteStore) CountVotesByVoter(_ context.Context, voterID int64) (int64, error) {
	return int64(len(s.votes[voterID])), nil
}

func (s *fakeVoteStore) ListVotesByVoter(_ context.Context, voterID int64) ([]storage.Vote, error) {
	return s.votes[voterID], nil
}

func seedNomination(t *testing.T, store *fakeNominationStore, name, position, status string) storage.Nomination {
	t.Helper()
	n, err := store.CreateNomination(context.Background(), storage.Nomination{
		Name:     name,
		Position: position,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("seed nomination: %v", err)
	}
	return n
}

func TestCurrentSlateOmitsWalkovers(t *testing.T) {
	nominations := newFakeNominationStore()
	a := seedNomination(t, nominations, "Alpha", "Secretary", storage.NominationStatusApproved)
	b := seedNomination(t, nominations, "Bravo", "Secretary", storage.NominationStatusApproved)
	seedNomination(t, nominations, "Charlie", "Secretary", "pending")
	seedNomination(t, nominations, "Delta", "Treasurer", storage.NominationStatusApproved)

	contests, err := CurrentSlate(context.Background(), nominations)
	if err != nil {
		t.Fatalf("current slate: %v", err)
	}
	if len(contests) != 1 {
		t.Fatalf("expected 1 contest, got %d", len(contests))
	}
	if contests[0].Position != "Secretary" {
		t.Fatalf("unexpected position: %q", contests[0].Position)
	}
	if len(contests[0].Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(contests[0].Candidates))
	}
	if contests[0].Candidates[0].ID != a.ID || contests[0].Candidates[1].ID != b.ID {
		t.Fatalf("unexpected candidate order: %+v", contests[0].Candidates)
	}
}

func TestCurrentSlateEmpty(t *testing.T) {
	contests, err := CurrentSlate(context.Background(), newFakeNominationStore())
	if err != nil {
		t.Fatalf("current slate: %v", err)
	}
	if len(contests) != 0 {
		t.Fatalf("expected empty slate, got %+v", contests)
	}
}

func TestCurrentSlateDeterministicOrder(t *testing.T) {
	nominations := newFakeNominationStore()
	for _, seed := range []struct{ name, position string }{
		{"Zed", "Treasurer"},
		{"Yan", "Treasurer"},
		{"Alpha", "President"},
		{"Bravo", "President"},
	} {
		seedNomination(t, nominations, seed.name, seed.position, storage.NominationStatusApproved)
	}

	contests, err := CurrentSlate(context.Background(), nominations)
	if err != nil {
		t.Fatalf("current slate: %v", err)
	}
	if len(contests) != 2 {
		t.Fatalf("expected 2 contests, got %d", len(contests))
	}
	if contests[0].Position != "President" || contests[1].Position != "Treasurer" {
		t.Fatalf("unexpected contest order: %+v", contests)
	}
}

type ballotFixture struct {
	voters      *fakeVoterStore
	nominations *fakeNominationStore
	votes       *fakeVoteStore
	service     *BallotService
	voter       voter.Voter
}

func newBallotFixture(t *testing.T, status voter.Status) *ballotFixture {
	t.Helper()
	voters := newFakeVoterStore()
	nominations := newFakeNominationStore()
	votes := newFakeVoteStore()

	v, err := voters.CreateVoter(context.Background(), voter.Voter{
		PublicID: "VOTER-1000-0001",
		Name:     "Voter",
		Status:   status,
	})
	if err != nil {
		t.Fatalf("create voter: %v", err)
	}

	service, err := NewBallotService(voters, nominations, votes)
	if err != nil {
		t.Fatalf("new ballot service: %v", err)
	}
	service.clock = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	return &ballotFixture{
		voters:      voters,
		nominations: nominations,
		votes:       votes,
		service:     service,
		voter:       v,
	}
}

func (f *ballotFixture) identity() session.Identity {
	return session.Identity{VoterID: f.voter.ID, VoterPublicID: f.voter.PublicID}
}

func TestSubmitBallotSuccess(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)
	a := seedNomination(t, f.nominations, "Alpha", "Secretary", storage.NominationStatusApproved)
	seedNomination(t, f.nominations, "Bravo", "Secretary", storage.NominationStatusApproved)

	err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, []Selection{
		{Position: "Secretary", NominationID: a.ID},
	})
	if err != nil {
		t.Fatalf("submit ballot: %v", err)
	}

	recorded := f.votes.votes[f.voter.ID]
	if len(recorded) != 1 {
		t.Fatalf("expected 1 vote, got %d", len(recorded))
	}
	if recorded[0].Position != "Secretary" || recorded[0].NominationID != a.ID {
		t.Fatalf("unexpected vote: %+v", recorded[0])
	}
}

func TestSubmitBallotIdentityMismatch(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)

	err := f.service.Submit(context.Background(), f.identity(), "VOTER-9999-9999", []Selection{
		{Position: "Secretary", NominationID: 1},
	})
	if !errors.Is(err, ErrIdentityMismatch) {
		t.Fatalf("expected identity mismatch, got %v", err)
	}
}

func TestSubmitBallotVoterNotApproved(t *testing.T) {
	for _, status := range []voter.Status{voter.StatusPending, voter.StatusRejected} {
		f := newBallotFixture(t, status)
		a := seedNomination(t, f.nominations, "Alpha", "Secretary", storage.NominationStatusApproved)

		err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, []Selection{
			{Position: "Secretary", NominationID: a.ID},
		})
		if !errors.Is(err, ErrVoterNotApproved) {
			t.Fatalf("status %s: expected not approved, got %v", status, err)
		}
	}
}

func TestSubmitBallotAlreadyVoted(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)
	a := seedNomination(t, f.nominations, "Alpha", "Secretary", storage.NominationStatusApproved)
	f.votes.votes[f.voter.ID] = []storage.Vote{{VoterID: f.voter.ID, Position: "Treasurer", NominationID: 99}}

	err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, []Selection{
		{Position: "Secretary", NominationID: a.ID},
	})
	if !errors.Is(err, storage.ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
}

func TestSubmitBallotEmpty(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)

	err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, nil)
	if !errors.Is(err, ErrEmptyBallot) {
		t.Fatalf("expected empty ballot, got %v", err)
	}
}

func TestSubmitBallotDuplicatePosition(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)
	a := seedNomination(t, f.nominations, "Alpha", "Secretary", storage.NominationStatusApproved)
	b := seedNomination(t, f.nominations, "Bravo", "Secretary", storage.NominationStatusApproved)

	err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, []Selection{
		{Position: "Secretary", NominationID: a.ID},
		{Position: "Secretary", NominationID: b.ID},
	})
	if apperrors.GetCode(err) != apperrors.CodeDuplicatePosition {
		t.Fatalf("expected duplicate position, got %v", err)
	}
	if len(f.votes.votes[f.voter.ID]) != 0 {
		t.Fatal("expected no votes recorded")
	}
}

func TestSubmitBallotInvalidSelection(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)
	pending := seedNomination(t, f.nominations, "Alpha", "Secretary", "pending")
	approved := seedNomination(t, f.nominations, "Bravo", "Treasurer", storage.NominationStatusApproved)

	cases := []struct {
		name      string
		selection Selection
	}{
		{"missing nomination", Selection{Position: "Secretary", NominationID: 999}},
		{"unapproved nomination", Selection{Position: "Secretary", NominationID: pending.ID}},
		{"position mismatch", Selection{Position: "Secretary", NominationID: approved.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, []Selection{tc.selection})
			if apperrors.GetCode(err) != apperrors.CodeInvalidSelection {
				t.Fatalf("expected invalid selection, got %v", err)
			}
		})
	}
}

func TestSubmitBallotAllOrNothing(t *testing.T) {
	f := newBallotFixture(t, voter.StatusApproved)
	a := seedNomination(t, f.nominations, "Alpha", "Secretary", storage.NominationStatusApproved)

	// The second selection is invalid, so the first must not be committed.
	err := f.service.Submit(context.Background(), f.identity(), f.voter.PublicID, []Selection{
		{Position: "Secretary", NominationID: a.ID},
		{Position: "Treasurer", NominationID: 999},
	})
	if apperrors.GetCode(err) != apperrors.CodeInvalidSelection {
		t.Fatalf("expected invalid selection, got %v", err)
	}
	if len(f.votes.votes[f.voter.ID]) != 0 {
		t.Fatal("expected no votes recorded")
	}
}
