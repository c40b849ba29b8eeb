package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/election"
	"github.com/aptsaicuf/election-service/internal/session"
)

type candidateResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	UnitName string `json:"unitName"`
}

type contestResponse struct {
	Position   string              `json:"position"`
	Candidates []candidateResponse `json:"candidates"`
}

// handleElectionOptions returns the current contested slate. The read is
// unauthenticated.
func (s *Server) handleElectionOptions(w http.ResponseWriter, r *http.Request) {
	contests, err := election.CurrentSlate(r.Context(), s.nominations)
	if err != nil {
		s.writeError(w, err)
		return
	}

	positions := make([]contestResponse, 0, len(contests))
	for _, contest := range contests {
		candidates := make([]candidateResponse, 0, len(contest.Candidates))
		for _, candidate := range contest.Candidates {
			candidates = append(candidates, candidateResponse{
				ID:       candidate.ID,
				Name:     candidate.Name,
				UnitName: candidate.UnitName,
			})
		}
		positions = append(positions, contestResponse{
			Position:   contest.Position,
			Candidates: candidates,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"positions": positions,
	})
}

type voteCastRequest struct {
	VoterID    string `json:"voterId"`
	Selections []struct {
		Position     string `json:"position"`
		NominationID int64  `json:"nominationId"`
	} `json:"selections"`
}

// handleVoteCast submits a ballot for the session voter.
func (s *Server) handleVoteCast(w http.ResponseWriter, r *http.Request) {
	identity, err := s.requireSession(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req voteCastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "request body is not valid JSON"))
		return
	}

	selections := make([]election.Selection, 0, len(req.Selections))
	for _, selection := range req.Selections {
		selections = append(selections, election.Selection{
			Position:     selection.Position,
			NominationID: selection.NominationID,
		})
	}

	if err := s.ballots.Submit(r.Context(), identity, req.VoterID, selections); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// requireSession verifies the session cookie on privileged endpoints.
func (s *Server) requireSession(r *http.Request) (session.Identity, error) {
	token, ok := readSessionCookie(r)
	if !ok {
		return session.Identity{}, session.ErrInvalidToken
	}
	return s.sessions.Verify(token)
}
