package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nandhanalahari/preva/pkg/models"
)

// ListAppointments returns the calendar for a time range
func (h *Handlers) ListAppointments(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "start must be an RFC3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "end must be an RFC3339 timestamp")
		return
	}

	actor := actorFrom(r)
	appointments, err := h.scheduling.List(r.Context(), actor, start, end)
	h.audit.Record(actor.UserID, actor.Role, "appointment.list", "", auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}
	respondJSON(w, http.StatusOK, appointments)
}

// CreateAppointment schedules a visit
func (h *Handlers) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatientID string    `json:"patientId"`
		Start     time.Time `json:"start"`
		End       time.Time `json:"end"`
		Title     string    `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := actorFrom(r)
	appt, err := h.scheduling.Create(r.Context(), actor, req.PatientID, req.Start, req.End, req.Title)
	h.audit.Record(actor.UserID, actor.Role, "appointment.create", req.PatientID, auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, appt)
}

// UpdateAppointment moves an appointment to new times
func (h *Handlers) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := actorFrom(r)
	appt, err := h.scheduling.Move(r.Context(), actor, chi.URLParam(r, "id"), req.Start, req.End)
	h.audit.Record(actor.UserID, actor.Role, "appointment.move", apptPatientID(appt), auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Appointment updated"})
}

// DeleteAppointment removes an appointment
func (h *Handlers) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	appt, err := h.scheduling.Delete(r.Context(), actor, chi.URLParam(r, "id"))
	h.audit.Record(actor.UserID, actor.Role, "appointment.delete", apptPatientID(appt), auditOutcome(err))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted"})
}

func apptPatientID(appt *models.Appointment) string {
	if appt == nil {
		return ""
	}
	return appt.PatientID
}
