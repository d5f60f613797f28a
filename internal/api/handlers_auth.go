package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/pkg/models"
)

func (h *Handlers) tokenTTL() time.Duration {
	return time.Duration(h.cfg.Server.TokenTTLHours) * time.Hour
}

// Register creates a nurse account
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		respondError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.db.CreateNurseUser(r.Context(), email, hash, strings.TrimSpace(req.Name))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	token, err := auth.IssueToken(h.cfg.Server.JWTSecret, user, h.tokenTTL())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.audit.Record(user.ID, user.Role, "auth.register", "", "ok")
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Login authenticates either a nurse (email) or a patient (username)
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		user *models.User
		err  error
	)
	switch {
	case strings.TrimSpace(req.Email) != "":
		user, err = h.db.GetUserByEmail(r.Context(), req.Email)
	case strings.TrimSpace(req.Username) != "":
		user, err = h.db.GetUserByUsername(r.Context(), req.Username)
	default:
		respondError(w, http.StatusBadRequest, "Email or username is required")
		return
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondServiceError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.audit.Record(user.ID, user.Role, "auth.login", user.PatientID, "denied")
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.IssueToken(h.cfg.Server.JWTSecret, user, h.tokenTTL())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.audit.Record(user.ID, user.Role, "auth.login", user.PatientID, "ok")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Me resolves the authenticated user
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	user, err := h.db.GetUserByID(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateContact replaces the authenticated user's contact info
func (h *Handlers) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var info models.ContactInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := actorFrom(r)
	if err := h.db.UpdateContactInfo(r.Context(), actor.UserID, info); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Contact info updated"})
}
