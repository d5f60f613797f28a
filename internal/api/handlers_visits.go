package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/pkg/models"
)

// CreateVisit runs the visit ingestion workflow for a clinical note
func (h *Handlers) CreateVisit(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	if err := auth.RequireNurse(actor); err != nil {
		respondServiceError(w, err)
		return
	}

	var req struct {
		ClinicalNote string `json:"clinicalNote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patient, err := h.db.GetPatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := auth.CanManagePatient(actor, patient); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "visit.create", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	result, err := h.visits.Ingest(r.Context(), actor.UserID, patientID, req.ClinicalNote)
	if err != nil {
		h.audit.Record(actor.UserID, actor.Role, "visit.create", patientID, "error")
		respondServiceError(w, err)
		return
	}

	h.audit.Record(actor.UserID, actor.Role, "visit.create", patientID, "ok")
	respondJSON(w, http.StatusCreated, result)
}

// ListVisits returns a patient's visit history, newest first
func (h *Handlers) ListVisits(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	patient, err := h.db.GetPatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := auth.CanViewPatient(actor, patient); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "visit.list", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	history, err := h.visits.History(r.Context(), patientID, 50)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if history == nil {
		history = []*models.Visit{}
	}
	h.audit.Record(actor.UserID, actor.Role, "visit.list", patientID, "ok")
	respondJSON(w, http.StatusOK, history)
}

// RiskReasoning explains the patient's current risk score
func (h *Handlers) RiskReasoning(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	if err := auth.CanUseInsights(actor, patientID); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "insights.reasoning", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	reasoning, err := h.insights.RiskReasoning(r.Context(), patientID)
	h.audit.Record(actor.UserID, actor.Role, "insights.reasoning", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"reasoning": reasoning})
}

// DailySummary writes the patient's "what to do today" list
func (h *Handlers) DailySummary(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	if err := auth.CanUseInsights(actor, patientID); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "insights.summary", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	summary, err := h.insights.DailySummary(r.Context(), patientID)
	h.audit.Record(actor.UserID, actor.Role, "insights.summary", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

// SummaryAudio synthesizes the patient's last voice summary as MP3
func (h *Handlers) SummaryAudio(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	patient, err := h.db.GetPatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := auth.CanViewPatient(actor, patient); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "patient.summary_audio", patientID, "denied")
		respondServiceError(w, err)
		return
	}
	if strings.TrimSpace(patient.LastVoiceSummary) == "" {
		respondError(w, http.StatusNotFound, "No voice summary on file")
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), patient.LastVoiceSummary)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.audit.Record(actor.UserID, actor.Role, "patient.summary_audio", patientID, "ok")
	respondJSON(w, http.StatusOK, map[string]string{
		"audioBase64": base64.StdEncoding.EncodeToString(audio),
	})
}
