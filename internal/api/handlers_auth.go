package api

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
)

const (
	stepOptions = "options"
	stepVerify  = "verify"
)

type passkeyRegisterRequest struct {
	VoterID             string          `json:"voterId"`
	Step                string          `json:"step"`
	AttestationResponse json.RawMessage `json:"attestationResponse"`
}

type passkeyLoginRequest struct {
	VoterID           string          `json:"voterId"`
	Step              string          `json:"step"`
	AssertionResponse json.RawMessage `json:"assertionResponse"`
}

// handlePasskeyRegister runs both steps of the registration ceremony.
func (s *Server) handlePasskeyRegister(w http.ResponseWriter, r *http.Request) {
	var req passkeyRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "request body is not valid JSON"))
		return
	}

	switch strings.TrimSpace(req.Step) {
	case stepOptions:
		creation, err := s.passkeys.BeginRegistration(r.Context(), req.VoterID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"options": creation,
		})
	case stepVerify:
		credentialID, err := s.passkeys.FinishRegistration(r.Context(), req.VoterID, req.AttestationResponse)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"credentialId": credentialID,
		})
	default:
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "step must be options or verify"))
	}
}

// handlePasskeyLogin runs both steps of the authentication ceremony. A
// successful verify step sets the session cookie; registration never does.
func (s *Server) handlePasskeyLogin(w http.ResponseWriter, r *http.Request) {
	var req passkeyLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "request body is not valid JSON"))
		return
	}

	switch strings.TrimSpace(req.Step) {
	case stepOptions:
		assertion, err := s.passkeys.BeginLogin(r.Context(), req.VoterID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"options": assertion,
		})
	case stepVerify:
		authenticated, err := s.passkeys.FinishLogin(r.Context(), req.VoterID, req.AssertionResponse)
		if err != nil {
			s.writeError(w, err)
			return
		}
		token, err := s.sessions.Issue(authenticated.ID, authenticated.PublicID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeSessionCookie(w, r, token, s.sessions.TTL())
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"voterId": authenticated.PublicID,
		})
	default:
		s.writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "step must be options or verify"))
	}
}
