package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
	"github.com/aptsaicuf/election-service/internal/voter"
)

type voterRegisterRequest struct {
	Name        string `json:"name"`
	Designation string `json:"designation"`
	UnitName    string `json:"unitName"`
	MobileNo    string `json:"mobileNo"`
}

// handleVoterRegister creates a pending voter record and returns the issued
// voter ID. Approval happens out of band.
func (s *Server) handleVoterRegister(w http.ResponseWriter, r *http.Request) {
	var req voterRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "request body is not valid JSON"))
		return
	}

	pending, err := voter.NewRegistration(voter.RegistrationInput{
		Name:        req.Name,
		Designation: req.Designation,
		UnitName:    req.UnitName,
		MobileNo:    req.MobileNo,
	}, s.clock)
	if err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.voters.CreateVoter(r.Context(), pending)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"voterId": created.PublicID,
	})
}
