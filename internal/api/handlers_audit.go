package api

import (
	"net/http"
	"strconv"

	"github.com/nandhanalahari/preva/internal/auth"
)

// AuditEvents lists recent audit events, optionally scoped to one patient
func (h *Handlers) AuditEvents(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := auth.RequireNurse(actor); err != nil {
		respondServiceError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	events, err := h.audit.RecentEvents(r.Context(), r.URL.Query().Get("patientId"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}
