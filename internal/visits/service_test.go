package visits

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/pkg/models"
)

type fakeCompleter struct {
	response string
	err      error
	requests []ai.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeStore struct {
	patient *models.Patient
	commits []database.RiskUpdate
	visits  []*models.Visit
}

func (f *fakeStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	if f.patient == nil || f.patient.ID != id {
		return nil, database.ErrNotFound
	}
	p := *f.patient
	return &p, nil
}

func (f *fakeStore) CommitVisit(ctx context.Context, patientID string, upd database.RiskUpdate, visit *models.Visit) (*models.Visit, error) {
	if f.patient == nil || f.patient.ID != patientID {
		return nil, database.ErrNotFound
	}
	f.patient.RiskScore = upd.RiskScore
	f.patient.RiskTrend = upd.RiskTrend
	f.patient.LastVisitDate = upd.LastVisitDate
	f.patient.LastVoiceSummary = upd.LastVoiceSummary
	f.commits = append(f.commits, upd)
	visit.ID = "visit-id"
	f.visits = append(f.visits, visit)
	return visit, nil
}

func (f *fakeStore) ListVisits(ctx context.Context, patientID string, limit int) ([]*models.Visit, error) {
	return f.visits, nil
}

func newTestService(store Store, completer ai.Completer) *Service {
	return NewService(store, completer, zerolog.Nop())
}

const goodAnalysis = `{
	"newRiskScore": 72,
	"riskFactors": [{"factor": "Missed diuretic doses", "severity": "critical", "detail": "two days"}],
	"soapNote": {"subjective": "s", "objective": "o", "assessment": "a", "plan": "p"},
	"voiceSummary": "  Take your medication tonight.  "
}`

func TestIngestCommitsVisit(t *testing.T) {
	store := &fakeStore{patient: &models.Patient{ID: "p1", Name: "Mary", RiskScore: 42}}
	svc := newTestService(store, &fakeCompleter{response: goodAnalysis})

	result, err := svc.Ingest(context.Background(), "n1", "p1", "Patient short of breath.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Visit.RiskScoreBefore != 42 || result.Visit.RiskScoreAfter != 72 {
		t.Errorf("risk transition %d -> %d, want 42 -> 72", result.Visit.RiskScoreBefore, result.Visit.RiskScoreAfter)
	}
	if result.Visit.VoiceSummary != "Take your medication tonight." {
		t.Errorf("voice summary not trimmed: %q", result.Visit.VoiceSummary)
	}
	if len(store.commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(store.commits))
	}
	if store.commits[0].RiskTrend != models.TrendUp {
		t.Errorf("trend %q, want up", store.commits[0].RiskTrend)
	}
	if result.Patient.RiskScore != 72 {
		t.Errorf("returned patient not refreshed: score %d", result.Patient.RiskScore)
	}
}

func TestIngestResubmissionAppendsSecondVisit(t *testing.T) {
	store := &fakeStore{patient: &models.Patient{ID: "p1", Name: "Mary", RiskScore: 42}}
	svc := newTestService(store, &fakeCompleter{response: goodAnalysis})

	for i := 0; i < 2; i++ {
		if _, err := svc.Ingest(context.Background(), "n1", "p1", "note"); err != nil {
			t.Fatalf("ingest %d: %v", i+1, err)
		}
	}
	if len(store.visits) != 2 {
		t.Errorf("got %d visits, want 2", len(store.visits))
	}
	// second visit starts from the committed score
	if store.visits[1].RiskScoreBefore != 72 {
		t.Errorf("second visit starts at %d, want 72", store.visits[1].RiskScoreBefore)
	}
	if store.commits[1].RiskTrend != models.TrendStable {
		t.Errorf("second trend %q, want stable", store.commits[1].RiskTrend)
	}
}

func TestIngestEmptyNote(t *testing.T) {
	store := &fakeStore{patient: &models.Patient{ID: "p1"}}
	completer := &fakeCompleter{response: goodAnalysis}
	svc := newTestService(store, completer)

	_, err := svc.Ingest(context.Background(), "n1", "p1", "   ")
	if !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("got %v, want ErrEmptyNote", err)
	}
	if len(completer.requests) != 0 {
		t.Error("model called for an empty note")
	}
}

func TestIngestUnparseableOutputPersistsNothing(t *testing.T) {
	store := &fakeStore{patient: &models.Patient{ID: "p1", Name: "Mary", RiskScore: 42}}
	svc := newTestService(store, &fakeCompleter{response: "I am not JSON"})

	_, err := svc.Ingest(context.Background(), "n1", "p1", "note")
	var analysisErr *AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("got %v, want AnalysisError", err)
	}
	if len(store.commits) != 0 || len(store.visits) != 0 {
		t.Error("failed analysis must not persist anything")
	}
	if store.patient.RiskScore != 42 {
		t.Errorf("patient mutated on failure: score %d", store.patient.RiskScore)
	}
}

func TestDecodeAnalysis(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantScore   int
		wantFactors int
		wantSummary string
		wantErr     bool
	}{
		{
			name:        "complete",
			raw:         goodAnalysis,
			wantScore:   72,
			wantFactors: 1,
			wantSummary: "  Take your medication tonight.  ",
		},
		{
			name:      "score above range clamps",
			raw:       `{"newRiskScore": 140, "riskFactors": [], "soapNote": {}, "voiceSummary": ""}`,
			wantScore: 100,
		},
		{
			name:      "negative score clamps",
			raw:       `{"newRiskScore": -5, "riskFactors": [], "soapNote": {}, "voiceSummary": ""}`,
			wantScore: 0,
		},
		{
			name:      "score as string coerces",
			raw:       `{"newRiskScore": "85", "riskFactors": [], "soapNote": {}, "voiceSummary": ""}`,
			wantScore: 85,
		},
		{
			name:        "missing risk factors become empty",
			raw:         `{"newRiskScore": 10, "soapNote": {}, "voiceSummary": "x"}`,
			wantScore:   10,
			wantFactors: 0,
			wantSummary: "x",
		},
		{
			name:        "malformed soap note zeroes",
			raw:         `{"newRiskScore": 10, "riskFactors": [], "soapNote": "not an object", "voiceSummary": "x"}`,
			wantScore:   10,
			wantSummary: "x",
		},
		{
			name:        "fenced output repairs",
			raw:         "```json\n{\"newRiskScore\": 30, \"riskFactors\": [], \"soapNote\": {}, \"voiceSummary\": \"y\",}\n```",
			wantScore:   30,
			wantSummary: "y",
		},
		{
			name:    "prose fails",
			raw:     "The patient seems fine.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAnalysis(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.NewRiskScore != tt.wantScore {
				t.Errorf("score %d, want %d", got.NewRiskScore, tt.wantScore)
			}
			if got.RiskFactors == nil {
				t.Error("risk factors must never be nil")
			}
			if len(got.RiskFactors) != tt.wantFactors {
				t.Errorf("got %d factors, want %d", len(got.RiskFactors), tt.wantFactors)
			}
			if got.VoiceSummary != tt.wantSummary {
				t.Errorf("summary %q, want %q", got.VoiceSummary, tt.wantSummary)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0}, {0, 0}, {55, 55}, {100, 100}, {101, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTrendFor(t *testing.T) {
	tests := []struct {
		before, after int
		want          models.RiskTrend
	}{
		{40, 50, models.TrendUp},
		{50, 40, models.TrendDown},
		{40, 40, models.TrendStable},
		{0, 0, models.TrendStable},
	}
	for _, tt := range tests {
		if got := trendFor(tt.before, tt.after); got != tt.want {
			t.Errorf("trendFor(%d, %d) = %q, want %q", tt.before, tt.after, got, tt.want)
		}
	}
}
