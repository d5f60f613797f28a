package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/auth"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/pkg/models"
)

type fakeStore struct {
	patients     map[string]*models.Patient
	appointments map[string]*models.Appointment
	nameLookups  int
	lastNameIDs  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		patients:     map[string]*models.Patient{},
		appointments: map[string]*models.Appointment{},
	}
}

func (f *fakeStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetPatientNames(ctx context.Context, ids []string) (map[string]string, error) {
	f.nameLookups++
	f.lastNameIDs = ids
	names := map[string]string{}
	for _, id := range ids {
		if p, ok := f.patients[id]; ok {
			names[id] = p.Name
		}
	}
	return names, nil
}

func (f *fakeStore) CreateAppointment(ctx context.Context, patientID, nurseID string, start, end time.Time, title string) (*models.Appointment, error) {
	a := &models.Appointment{
		ID:            "appt-" + patientID,
		PatientID:     patientID,
		AddedByUserID: nurseID,
		Start:         start,
		End:           end,
		Title:         title,
	}
	f.appointments[a.ID] = a
	return a, nil
}

func (f *fakeStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListAppointmentsInRange(ctx context.Context, start, end time.Time, filter database.AppointmentFilter) ([]*models.Appointment, error) {
	var out []*models.Appointment
	for _, a := range f.appointments {
		if filter.NurseID != "" && a.AddedByUserID != filter.NurseID {
			continue
		}
		if filter.PatientID != "" && a.PatientID != filter.PatientID {
			continue
		}
		if a.Start.Before(end) && a.End.After(start) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAppointmentTimes(ctx context.Context, id string, start, end time.Time) error {
	a, ok := f.appointments[id]
	if !ok {
		return database.ErrNotFound
	}
	a.Start, a.End = start, end
	return nil
}

func (f *fakeStore) DeleteAppointment(ctx context.Context, id string) error {
	if _, ok := f.appointments[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.appointments, id)
	return nil
}

var (
	nurse   = auth.Actor{UserID: "nurse-1", Role: models.RoleNurse}
	patient = auth.Actor{UserID: "user-p1", Role: models.RolePatient, PatientID: "p1"}
)

func testService(store Store) *Service {
	return NewService(store, zerolog.Nop())
}

func TestCreateDefaultsTitle(t *testing.T) {
	store := newFakeStore()
	store.patients["p1"] = &models.Patient{ID: "p1", Name: "Mary", AddedByUserID: "nurse-1"}
	svc := testService(store)

	start := time.Now()
	appt, err := svc.Create(context.Background(), nurse, "p1", start, start.Add(time.Hour), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Title != "Visit" {
		t.Errorf("title %q, want Visit", appt.Title)
	}
	if appt.PatientName != "Mary" {
		t.Errorf("patient name %q, want Mary", appt.PatientName)
	}
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	store := newFakeStore()
	store.patients["p1"] = &models.Patient{ID: "p1", AddedByUserID: "nurse-1"}
	svc := testService(store)

	start := time.Now()
	_, err := svc.Create(context.Background(), nurse, "p1", start, start, "x")
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("got %v, want ErrInvalidRange", err)
	}
}

func TestCreateRejectsOtherNursesPatient(t *testing.T) {
	store := newFakeStore()
	store.patients["p1"] = &models.Patient{ID: "p1", AddedByUserID: "nurse-2"}
	svc := testService(store)

	start := time.Now()
	_, err := svc.Create(context.Background(), nurse, "p1", start, start.Add(time.Hour), "")
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
}

func TestListEnrichesNamesWithOneLookup(t *testing.T) {
	store := newFakeStore()
	store.patients["p1"] = &models.Patient{ID: "p1", Name: "Mary", AddedByUserID: "nurse-1"}
	store.patients["p2"] = &models.Patient{ID: "p2", Name: "Robert", AddedByUserID: "nurse-1"}
	svc := testService(store)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, pid := range []string{"p1", "p2", "p1"} {
		start := base.Add(time.Duration(i) * time.Hour)
		store.appointments["a"+pid+start.String()] = &models.Appointment{
			ID: "a" + start.String(), PatientID: pid, AddedByUserID: "nurse-1",
			Start: start, End: start.Add(30 * time.Minute),
		}
	}

	appointments, err := svc.List(context.Background(), nurse, base.Add(-time.Hour), base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appointments) != 3 {
		t.Fatalf("got %d appointments, want 3", len(appointments))
	}
	if store.nameLookups != 1 {
		t.Errorf("got %d name lookups, want exactly 1", store.nameLookups)
	}
	if len(store.lastNameIDs) != 2 {
		t.Errorf("lookup asked for %d ids, want 2 distinct: %v", len(store.lastNameIDs), store.lastNameIDs)
	}
	for _, a := range appointments {
		if a.PatientName == "" {
			t.Errorf("appointment %s not enriched", a.ID)
		}
	}
}

func TestListScopesPatientToOwnCalendar(t *testing.T) {
	store := newFakeStore()
	store.patients["p1"] = &models.Patient{ID: "p1", Name: "Mary"}
	store.patients["p2"] = &models.Patient{ID: "p2", Name: "Robert"}
	now := time.Now()
	store.appointments["a1"] = &models.Appointment{ID: "a1", PatientID: "p1", AddedByUserID: "nurse-1", Start: now, End: now.Add(time.Hour)}
	store.appointments["a2"] = &models.Appointment{ID: "a2", PatientID: "p2", AddedByUserID: "nurse-1", Start: now, End: now.Add(time.Hour)}
	svc := testService(store)

	appointments, err := svc.List(context.Background(), patient, now.Add(-time.Hour), now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appointments) != 1 || appointments[0].PatientID != "p1" {
		t.Errorf("patient sees %d appointments, want only their own", len(appointments))
	}
}

func TestMoveRequiresOwningNurse(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.appointments["a1"] = &models.Appointment{ID: "a1", PatientID: "p1", AddedByUserID: "nurse-2", Start: now, End: now.Add(time.Hour)}
	svc := testService(store)

	_, err := svc.Move(context.Background(), nurse, "a1", now, now.Add(time.Hour))
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("got %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Move(context.Background(), patient, "a1", now, now.Add(time.Hour)); !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("patient could move appointment: %v", err)
	}
}

func TestDeleteMissingAppointment(t *testing.T) {
	svc := testService(newFakeStore())
	_, err := svc.Delete(context.Background(), nurse, "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
