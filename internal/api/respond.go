package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aptsaicuf/election-service/internal/platform/errors"
)

// errorMessage is the client-facing message for a failed request.
//
// Domain error messages are written as safe, non-leaking text; anything
// outside the taxonomy collapses to a generic message.
func errorMessage(err error) string {
	if apperrors.GetCode(err) == apperrors.CodeUnknown {
		return "internal server error"
	}
	return err.Error()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Printf("request failed: %v", err)
	}
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"message": errorMessage(err),
	})
}
