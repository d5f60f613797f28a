package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/internal/messaging"
	"github.com/nandhanalahari/preva/internal/scheduling"
	"github.com/nandhanalahari/preva/internal/speech"
	"github.com/nandhanalahari/preva/internal/visits"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps workflow errors onto HTTP statuses. Anything
// unrecognized is a 500 with a generic message.
func respondServiceError(w http.ResponseWriter, err error) {
	var analysisErr *visits.AnalysisError
	var providerErr *speech.ProviderError

	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, database.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, database.ErrDuplicateUsername):
		respondError(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, database.ErrAlreadyReplied):
		respondError(w, http.StatusConflict, "Message already has a reply")
	case errors.Is(err, visits.ErrEmptyNote),
		errors.Is(err, messaging.ErrEmptyText),
		errors.Is(err, scheduling.ErrInvalidRange):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrNotConfigured),
		errors.Is(err, speech.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &analysisErr):
		respondError(w, http.StatusBadGateway, analysisErr.Error())
	case errors.As(err, &providerErr):
		respondError(w, http.StatusBadGateway, providerErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// auditOutcome classifies a handler result for the audit trail
func auditOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, auth.ErrUnauthorized):
		return "denied"
	default:
		return "error"
	}
}
