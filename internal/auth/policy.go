package auth

import (
	"errors"

	"github.com/nandhanalahari/preva/pkg/models"
)

// ErrUnauthorized is returned for every failed role or ownership check
var ErrUnauthorized = errors.New("unauthorized")

// Actor is the request-scoped identity every workflow call receives. For
// patient-role actors PatientID is the linked patient record; it is empty
// for nurses.
type Actor struct {
	UserID    string
	Role      models.Role
	PatientID string
}

// IsNurse reports whether the actor holds the nurse role
func (a Actor) IsNurse() bool { return a.Role == models.RoleNurse }

// IsPatient reports whether the actor holds the patient role
func (a Actor) IsPatient() bool { return a.Role == models.RolePatient }

// CanManagePatient allows writes on a patient record: only the nurse who
// added the patient.
func CanManagePatient(actor Actor, patient *models.Patient) error {
	if actor.IsNurse() && patient.AddedByUserID == actor.UserID {
		return nil
	}
	return ErrUnauthorized
}

// CanViewPatient allows reads on a patient record and its sub-resources:
// the owning nurse, or the patient themself.
func CanViewPatient(actor Actor, patient *models.Patient) error {
	if actor.IsNurse() && patient.AddedByUserID == actor.UserID {
		return nil
	}
	if actor.IsPatient() && actor.PatientID != "" && actor.PatientID == patient.ID {
		return nil
	}
	return ErrUnauthorized
}

// CanUseInsights gates the read-only model-backed helpers (risk reasoning,
// daily summary). Any nurse may run them for any patient; a patient only for
// their own record.
func CanUseInsights(actor Actor, patientID string) error {
	if actor.IsNurse() {
		return nil
	}
	if actor.IsPatient() && actor.PatientID != "" && actor.PatientID == patientID {
		return nil
	}
	return ErrUnauthorized
}

// RequireNurse rejects non-nurse actors
func RequireNurse(actor Actor) error {
	if actor.IsNurse() {
		return nil
	}
	return ErrUnauthorized
}

// RequirePatient rejects non-patient actors and patients with no linked
// record.
func RequirePatient(actor Actor) error {
	if actor.IsPatient() && actor.PatientID != "" {
		return nil
	}
	return ErrUnauthorized
}
