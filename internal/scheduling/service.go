// Package scheduling manages the visit calendar. Appointments belong to the
// nurse who created them; patients see their own calendar read-only.
package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/pkg/models"
)

var (
	// ErrInvalidRange means the appointment would end before it starts
	ErrInvalidRange = errors.New("appointment end must be after start")
)

const defaultTitle = "Visit"

// Store is the persistence surface the service needs
type Store interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	GetPatientNames(ctx context.Context, ids []string) (map[string]string, error)
	CreateAppointment(ctx context.Context, patientID, nurseID string, start, end time.Time, title string) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointmentsInRange(ctx context.Context, start, end time.Time, filter database.AppointmentFilter) ([]*models.Appointment, error)
	UpdateAppointmentTimes(ctx context.Context, id string, start, end time.Time) error
	DeleteAppointment(ctx context.Context, id string) error
}

// Service owns calendar operations
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService constructs a scheduling service
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "scheduling").Logger()}
}

// Create schedules an appointment for one of the nurse's patients
func (s *Service) Create(ctx context.Context, actor auth.Actor, patientID string, start, end time.Time, title string) (*models.Appointment, error) {
	if err := auth.RequireNurse(actor); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := auth.CanManagePatient(actor, patient); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}

	appt, err := s.store.CreateAppointment(ctx, patientID, actor.UserID, start, end, title)
	if err != nil {
		return nil, err
	}
	appt.PatientName = patient.Name
	return appt, nil
}

// List returns the calendar for [start, end). Nurses see their own calendar,
// patients their own appointments. Patient names are resolved in one batched
// lookup rather than per row.
func (s *Service) List(ctx context.Context, actor auth.Actor, start, end time.Time) ([]*models.Appointment, error) {
	var filter database.AppointmentFilter
	switch {
	case actor.IsNurse():
		filter.NurseID = actor.UserID
	case actor.IsPatient() && actor.PatientID != "":
		filter.PatientID = actor.PatientID
	default:
		return nil, auth.ErrUnauthorized
	}

	appointments, err := s.store.ListAppointmentsInRange(ctx, start, end, filter)
	if err != nil {
		return nil, err
	}
	if len(appointments) == 0 {
		return []*models.Appointment{}, nil
	}

	seen := make(map[string]bool, len(appointments))
	ids := make([]string, 0, len(appointments))
	for _, a := range appointments {
		if !seen[a.PatientID] {
			seen[a.PatientID] = true
			ids = append(ids, a.PatientID)
		}
	}
	names, err := s.store.GetPatientNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range appointments {
		a.PatientName = names[a.PatientID]
	}
	return appointments, nil
}

// Move changes an appointment's start and end times
func (s *Service) Move(ctx context.Context, actor auth.Actor, appointmentID string, start, end time.Time) (*models.Appointment, error) {
	appt, err := s.requireOwned(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	if err := s.store.UpdateAppointmentTimes(ctx, appointmentID, start, end); err != nil {
		return nil, err
	}
	appt.Start = start
	appt.End = end
	return appt, nil
}

// Delete removes an appointment from the calendar and returns the removed
// record.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, appointmentID string) (*models.Appointment, error) {
	appt, err := s.requireOwned(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteAppointment(ctx, appointmentID); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) requireOwned(ctx context.Context, actor auth.Actor, appointmentID string) (*models.Appointment, error) {
	if err := auth.RequireNurse(actor); err != nil {
		return nil, err
	}
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.AddedByUserID != actor.UserID {
		return nil, auth.ErrUnauthorized
	}
	return appt, nil
}
