// Package visits implements the visit ingestion workflow: a nurse's clinical
// note goes through the generative model, the structured analysis is validated
// and clamped, and the patient's derived risk fields plus the immutable visit
// record are committed together.
package visits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/pkg/models"
)

var (
	// ErrEmptyNote means the clinical note contained no text
	ErrEmptyNote = errors.New("clinical note is empty")
)

// AnalysisError signals that the model's output could not be turned into a
// usable analysis. Nothing is persisted when it occurs.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("visit analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Store is the persistence surface the service needs
type Store interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	CommitVisit(ctx context.Context, patientID string, upd database.RiskUpdate, visit *models.Visit) (*models.Visit, error)
	ListVisits(ctx context.Context, patientID string, limit int) ([]*models.Visit, error)
}

// Service runs visit analysis and persistence
type Service struct {
	store  Store
	ai     ai.Completer
	logger zerolog.Logger
}

// NewService constructs a visit service
func NewService(store Store, completer ai.Completer, logger zerolog.Logger) *Service {
	return &Service{store: store, ai: completer, logger: logger.With().Str("component", "visits").Logger()}
}

// Result is the outcome of a committed visit
type Result struct {
	Visit    *models.Visit         `json:"visit"`
	Analysis models.VisitAnalysis  `json:"analysis"`
	Patient  *models.Patient       `json:"patient"`
}

// Ingest analyzes a clinical note for the given patient and commits the
// outcome. The patient row and the visit row change together or not at all.
func (s *Service) Ingest(ctx context.Context, nurseID, patientID, clinicalNote string) (*Result, error) {
	note := strings.TrimSpace(clinicalNote)
	if note == "" {
		return nil, ErrEmptyNote
	}

	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	analysis, err := s.Analyze(ctx, note, patient.Name, patient.RiskScore)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	trend := trendFor(patient.RiskScore, analysis.NewRiskScore)
	summary := strings.TrimSpace(analysis.VoiceSummary)

	visit := &models.Visit{
		PatientID:       patientID,
		NurseID:         nurseID,
		Date:            today,
		ClinicalNote:    note,
		RiskScoreBefore: patient.RiskScore,
		RiskScoreAfter:  analysis.NewRiskScore,
		RiskFactors:     analysis.RiskFactors,
		SOAPNote:        analysis.SOAPNote,
		VoiceSummary:    summary,
	}
	upd := database.RiskUpdate{
		RiskScore:          analysis.NewRiskScore,
		RiskTrend:          trend,
		LastVisitDate:      today,
		LastVoiceSummary:   summary,
		LastVoiceSummaryAt: today,
	}

	committed, err := s.store.CommitVisit(ctx, patientID, upd, visit)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Int("risk_before", committed.RiskScoreBefore).
		Int("risk_after", committed.RiskScoreAfter).
		Str("trend", string(trend)).
		Msg("visit committed")

	return &Result{Visit: committed, Analysis: *analysis, Patient: updated}, nil
}

// Analyze runs the clinical note through the model and normalizes the result.
// It is side-effect free.
func (s *Service) Analyze(ctx context.Context, clinicalNote, patientName string, currentRiskScore int) (*models.VisitAnalysis, error) {
	raw, err := s.ai.Complete(ctx, ai.Request{
		System:   analyzeSystem,
		Prompt:   analyzePrompt(clinicalNote, patientName, currentRiskScore),
		JSONOnly: true,
	})
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return nil, err
		}
		return nil, &AnalysisError{Err: err}
	}

	analysis, err := decodeAnalysis(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unparseable model output")
		return nil, &AnalysisError{Err: err}
	}
	return analysis, nil
}

// decodeAnalysis parses the model's JSON and coerces loosely-typed fields.
// Individual malformed fields degrade to zero values; an unparseable document
// is an error.
func decodeAnalysis(raw string) (*models.VisitAnalysis, error) {
	var loose struct {
		NewRiskScore json.RawMessage `json:"newRiskScore"`
		RiskFactors  json.RawMessage `json:"riskFactors"`
		SOAPNote     json.RawMessage `json:"soapNote"`
		VoiceSummary json.RawMessage `json:"voiceSummary"`
	}
	if err := ai.ParseJSON(raw, &loose); err != nil {
		return nil, err
	}

	analysis := &models.VisitAnalysis{RiskFactors: []models.RiskFactor{}}
	analysis.NewRiskScore = ClampScore(coerceInt(loose.NewRiskScore))

	if len(loose.RiskFactors) > 0 {
		var factors []models.RiskFactor
		if err := json.Unmarshal(loose.RiskFactors, &factors); err == nil && factors != nil {
			analysis.RiskFactors = factors
		}
	}
	if len(loose.SOAPNote) > 0 {
		// malformed soapNote stays zeroed
		_ = json.Unmarshal(loose.SOAPNote, &analysis.SOAPNote)
	}
	if len(loose.VoiceSummary) > 0 {
		var summary string
		if err := json.Unmarshal(loose.VoiceSummary, &summary); err == nil {
			analysis.VoiceSummary = summary
		} else {
			analysis.VoiceSummary = string(loose.VoiceSummary)
		}
	}
	return analysis, nil
}

// coerceInt reads a number out of a JSON value that may arrive as a number
// or a quoted string. Anything else counts as zero.
func coerceInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if _, perr := fmt.Sscanf(strings.TrimSpace(s), "%f", &f); perr == nil {
			return int(f)
		}
	}
	return 0
}

// ClampScore bounds a risk score to the 0-100 scale
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func trendFor(before, after int) models.RiskTrend {
	switch {
	case after > before:
		return models.TrendUp
	case after < before:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// History returns the patient's recent visits, newest first
func (s *Service) History(ctx context.Context, patientID string, limit int) ([]*models.Visit, error) {
	return s.store.ListVisits(ctx, patientID, limit)
}
