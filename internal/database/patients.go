package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nandhanalahari/preva/pkg/models"
)

const patientColumns = `id, name, age, conditions, medications, prior_hospitalizations,
       risk_score, risk_trend, COALESCE(last_visit_date, ''), status, image_initials,
       bp_history, last_voice_summary, COALESCE(last_voice_summary_at, ''),
       COALESCE(user_id::text, ''), added_by_user_id::text, created_at`

func scanPatient(row pgx.Row) (*models.Patient, error) {
	p := &models.Patient{}
	var conditions, medications, bpHistory []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.Age, &conditions, &medications, &p.PriorHospitalizations,
		&p.RiskScore, &p.RiskTrend, &p.LastVisitDate, &p.Status, &p.ImageInitials,
		&bpHistory, &p.LastVoiceSummary, &p.LastVoiceSummaryAt,
		&p.UserID, &p.AddedByUserID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conditions, &p.Conditions); err != nil {
		return nil, fmt.Errorf("bad conditions payload for patient %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(medications, &p.Medications); err != nil {
		return nil, fmt.Errorf("bad medications payload for patient %s: %w", p.ID, err)
	}
	if err := json.Unmarshal(bpHistory, &p.BPHistory); err != nil {
		return nil, fmt.Errorf("bad bp history payload for patient %s: %w", p.ID, err)
	}
	return p, nil
}

// CreatePatient inserts a new patient record
func (db *DB) CreatePatient(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	conditions, err := json.Marshal(emptyIfNilStrings(p.Conditions))
	if err != nil {
		return nil, err
	}
	medications, err := json.Marshal(emptyIfNilMeds(p.Medications))
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO patients (id, name, age, conditions, medications, prior_hospitalizations,
		                      risk_score, risk_trend, status, image_initials, added_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + patientColumns

	created, err := scanPatient(db.pool.QueryRow(ctx, query,
		id, p.Name, p.Age, conditions, medications, p.PriorHospitalizations,
		p.RiskScore, p.RiskTrend, p.Status, p.ImageInitials, p.AddedByUserID, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return created, nil
}

// SetPatientUser links the patient record back to its login credential
func (db *DB) SetPatientUser(ctx context.Context, patientID, userID string) error {
	_, err := db.pool.Exec(ctx, `UPDATE patients SET user_id = $2 WHERE id = $1`, patientID, userID)
	return err
}

// DeletePatient removes a patient record. Only used to roll back creation
// when the paired credential could not be created.
func (db *DB) DeletePatient(ctx context.Context, patientID string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, patientID)
	return err
}

// GetPatient retrieves one patient by ID
func (db *DB) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(db.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// ListPatientsByNurse returns a nurse's patients, highest risk first
func (db *DB) ListPatientsByNurse(ctx context.Context, nurseID string) ([]*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE added_by_user_id = $1 ORDER BY risk_score DESC`
	rows, err := db.pool.Query(ctx, query, nurseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// GetPatientNames resolves display names for a set of patient IDs in one
// query. Used by the appointment listing to avoid per-row lookups.
func (db *DB) GetPatientNames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	rows, err := db.pool.Query(ctx, `SELECT id, name FROM patients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patient names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(ids))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// AppendBloodPressure appends one reading to the patient's bp history
func (db *DB) AppendBloodPressure(ctx context.Context, patientID string, reading models.BPReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	query := `UPDATE patients SET bp_history = bp_history || $2::jsonb WHERE id = $1`
	tag, err := db.pool.Exec(ctx, query, patientID, payload)
	if err != nil {
		return fmt.Errorf("failed to append bp reading: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RiskUpdate carries the patient-side fields written when a visit commits
type RiskUpdate struct {
	RiskScore          int
	RiskTrend          models.RiskTrend
	LastVisitDate      string
	LastVoiceSummary   string
	LastVoiceSummaryAt string
}

// CommitVisit applies the two writes of the visit ingestion workflow in one
// transaction: the patient's derived risk fields and the immutable visit
// record. Either both land or neither does.
func (db *DB) CommitVisit(ctx context.Context, patientID string, upd RiskUpdate, visit *models.Visit) (*models.Visit, error) {
	riskFactors, err := json.Marshal(emptyIfNilFactors(visit.RiskFactors))
	if err != nil {
		return nil, err
	}
	soapNote, err := json.Marshal(visit.SOAPNote)
	if err != nil {
		return nil, err
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE patients
		SET risk_score = $2, risk_trend = $3, last_visit_date = $4,
		    last_voice_summary = $5, last_voice_summary_at = $6
		WHERE id = $1`,
		patientID, upd.RiskScore, upd.RiskTrend, upd.LastVisitDate,
		upd.LastVoiceSummary, upd.LastVoiceSummaryAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient risk fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	err = tx.QueryRow(ctx, `
		INSERT INTO visits (id, patient_id, nurse_id, visit_date, clinical_note,
		                    risk_score_before, risk_score_after, risk_factors, soap_note, voice_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`,
		id, patientID, visit.NurseID, visit.Date, visit.ClinicalNote,
		visit.RiskScoreBefore, visit.RiskScoreAfter, riskFactors, soapNote, visit.VoiceSummary, now,
	).Scan(&visit.ID, &visit.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert visit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit visit: %w", err)
	}
	visit.PatientID = patientID
	return visit, nil
}

// ListVisits returns a patient's visit history, newest first
func (db *DB) ListVisits(ctx context.Context, patientID string, limit int) ([]*models.Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx, `
		SELECT id, patient_id, nurse_id, visit_date, clinical_note,
		       risk_score_before, risk_score_after, risk_factors, soap_note, voice_summary, created_at
		FROM visits WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2`,
		patientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var visits []*models.Visit
	for rows.Next() {
		v := &models.Visit{}
		var riskFactors, soapNote []byte
		err := rows.Scan(
			&v.ID, &v.PatientID, &v.NurseID, &v.Date, &v.ClinicalNote,
			&v.RiskScoreBefore, &v.RiskScoreAfter, &riskFactors, &soapNote, &v.VoiceSummary, &v.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(riskFactors, &v.RiskFactors); err != nil {
			return nil, fmt.Errorf("bad risk factors payload for visit %s: %w", v.ID, err)
		}
		if err := json.Unmarshal(soapNote, &v.SOAPNote); err != nil {
			return nil, fmt.Errorf("bad soap note payload for visit %s: %w", v.ID, err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func emptyIfNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilMeds(m []models.Medication) []models.Medication {
	if m == nil {
		return []models.Medication{}
	}
	return m
}

func emptyIfNilFactors(f []models.RiskFactor) []models.RiskFactor {
	if f == nil {
		return []models.RiskFactor{}
	}
	return f
}
