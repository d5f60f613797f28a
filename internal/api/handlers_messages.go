package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nandhanalahari/preva/pkg/models"
)

// SendChat appends a chat message for a patient
func (h *Handlers) SendChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")
	msg, err := h.messaging.SendChat(r.Context(), actor, patientID, req.Text)
	h.audit.Record(actor.UserID, actor.Role, "chat.send", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ListChat returns the chat log, optionally only messages after a timestamp
func (h *Handlers) ListChat(w http.ResponseWriter, r *http.Request) {
	var after time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "after must be an RFC3339 timestamp")
			return
		}
		after = parsed
	}

	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")
	messages, err := h.messaging.ListChat(r.Context(), actor, patientID, after)
	h.audit.Record(actor.UserID, actor.Role, "chat.list", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// MarkChatRead flips the counterpart's messages to read
func (h *Handlers) MarkChatRead(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")
	err := h.messaging.MarkChatRead(r.Context(), actor, patientID)
	h.audit.Record(actor.UserID, actor.Role, "chat.mark_read", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Chat marked read"})
}

// UnreadCounts returns per-patient unread message counts for the nurse
func (h *Handlers) UnreadCounts(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if raw := strings.TrimSpace(r.URL.Query().Get("patientIds")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				ids = append(ids, trimmed)
			}
		}
	}

	counts, err := h.messaging.UnreadCounts(r.Context(), actorFrom(r), ids)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// SubmitPatientMessage stores a patient voice self-report
func (h *Handlers) SubmitPatientMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript string `json:"transcript"`
		Mode       string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msgType := models.PatientMessageType(req.Mode)
	if msgType != models.MessageRaw && msgType != models.MessageAnalyzed {
		respondError(w, http.StatusBadRequest, "mode must be raw or analyzed")
		return
	}

	actor := actorFrom(r)
	msg, err := h.messaging.SubmitReport(r.Context(), actor, req.Transcript, msgType)
	h.audit.Record(actor.UserID, actor.Role, "report.submit", actor.PatientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ListPatientMessages returns a patient's self-reports, newest first
func (h *Handlers) ListPatientMessages(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")
	messages, err := h.messaging.ListReports(r.Context(), actor, patientID)
	h.audit.Record(actor.UserID, actor.Role, "report.list", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.PatientMessage{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// ReplyPatientMessage records the nurse's write-once reply
func (h *Handlers) ReplyPatientMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reply string `json:"reply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := actorFrom(r)
	msg, err := h.messaging.Reply(r.Context(), actor, chi.URLParam(r, "id"), req.Reply)
	var pid string
	if msg != nil {
		pid = msg.PatientID
	}
	h.audit.Record(actor.UserID, actor.Role, "report.reply", pid, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// MarkPatientMessagesRead bulk-marks a patient's self-reports read
func (h *Handlers) MarkPatientMessagesRead(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")
	err := h.messaging.MarkReportsRead(r.Context(), actor, patientID)
	h.audit.Record(actor.UserID, actor.Role, "report.mark_read", patientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Messages marked read"})
}
