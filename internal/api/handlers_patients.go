package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/pkg/models"
)

func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		runes := []rune(word)
		b.WriteString(strings.ToUpper(string(runes[0])))
		if len([]rune(b.String())) >= 2 {
			break
		}
	}
	return b.String()
}

// CreatePatient creates a patient record together with its login credential.
// A username collision rolls the patient record back.
func (h *Handlers) CreatePatient(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := auth.RequireNurse(actor); err != nil {
		respondServiceError(w, err)
		return
	}

	var req struct {
		Name                  string              `json:"name"`
		Age                   int                 `json:"age"`
		Conditions            []string            `json:"conditions"`
		Medications           []models.Medication `json:"medications"`
		PriorHospitalizations int                 `json:"priorHospitalizations"`
		Username              string              `json:"username"`
		Password              string              `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "Patient name is required")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	conditions := make([]string, 0, len(req.Conditions))
	for _, c := range req.Conditions {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			conditions = append(conditions, trimmed)
		}
	}
	medications := make([]models.Medication, 0, len(req.Medications))
	for _, m := range req.Medications {
		if strings.TrimSpace(m.Name) != "" {
			medications = append(medications, m)
		}
	}

	patient, err := h.db.CreatePatient(r.Context(), &models.Patient{
		Name:                  name,
		Age:                   req.Age,
		Conditions:            conditions,
		Medications:           medications,
		PriorHospitalizations: req.PriorHospitalizations,
		RiskScore:             0,
		RiskTrend:             models.TrendStable,
		Status:                models.StatusActive,
		ImageInitials:         initials(name),
		AddedByUserID:         actor.UserID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.db.DeletePatient(r.Context(), patient.ID)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	user, err := h.db.CreatePatientUser(r.Context(), req.Username, hash, patient.ID, actor.UserID)
	if err != nil {
		h.db.DeletePatient(r.Context(), patient.ID)
		respondServiceError(w, err)
		return
	}
	if err := h.db.SetPatientUser(r.Context(), patient.ID, user.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	patient.UserID = user.ID

	h.audit.Record(actor.UserID, actor.Role, "patient.create", patient.ID, "ok")
	respondJSON(w, http.StatusCreated, patient)
}

// ListPatients returns the nurse's patients, highest risk first
func (h *Handlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := auth.RequireNurse(actor); err != nil {
		respondServiceError(w, err)
		return
	}

	patients, err := h.db.ListPatientsByNurse(r.Context(), actor.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if patients == nil {
		patients = []*models.Patient{}
	}
	respondJSON(w, http.StatusOK, patients)
}

// GetPatient returns one patient record
func (h *Handlers) GetPatient(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	patient, err := h.db.GetPatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := auth.CanViewPatient(actor, patient); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "patient.read", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	h.audit.Record(actor.UserID, actor.Role, "patient.read", patientID, "ok")
	respondJSON(w, http.StatusOK, patient)
}

// RecordBloodPressure appends a reading to the patient's history
func (h *Handlers) RecordBloodPressure(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	var req struct {
		Systolic  int `json:"systolic"`
		Diastolic int `json:"diastolic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Systolic < 1 || req.Systolic > 300 || req.Diastolic < 1 || req.Diastolic > 200 {
		respondError(w, http.StatusBadRequest, "Systolic and diastolic must be valid numbers in a reasonable range")
		return
	}

	patient, err := h.db.GetPatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := auth.CanManagePatient(actor, patient); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "patient.record_bp", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	reading := models.BPReading{
		Date:      time.Now().UTC().Format("2006-01-02"),
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
	}
	if err := h.db.AppendBloodPressure(r.Context(), patientID, reading); err != nil {
		respondServiceError(w, err)
		return
	}

	h.audit.Record(actor.UserID, actor.Role, "patient.record_bp", patientID, "ok")
	respondJSON(w, http.StatusCreated, reading)
}

// GetPatientCredential returns the login details linked to a patient record
func (h *Handlers) GetPatientCredential(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	patientID := chi.URLParam(r, "id")

	patient, err := h.db.GetPatient(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := auth.CanManagePatient(actor, patient); err != nil {
		h.audit.Record(actor.UserID, actor.Role, "patient.credential", patientID, "denied")
		respondServiceError(w, err)
		return
	}

	user, err := h.db.GetUserByPatientID(r.Context(), patientID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.audit.Record(actor.UserID, actor.Role, "patient.credential", patientID, "ok")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"username":    user.Username,
		"contactInfo": user.ContactInfo,
	})
}
