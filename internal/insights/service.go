// Package insights generates free-text explanations from patient data: why a
// risk score is what it is, and what the patient should do today.
package insights

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/pkg/models"
)

const reasoningSystem = "You are a clinical risk reasoning assistant. Provide concise, evidence-based explanations of patient risk scores. Use only the information provided. Be warm but precise."

const noteExcerptLimit = 300

// Store is the persistence surface the service needs
type Store interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	ListVisits(ctx context.Context, patientID string, limit int) ([]*models.Visit, error)
}

// Service produces narrative insights over patient records
type Service struct {
	store  Store
	ai     ai.Completer
	logger zerolog.Logger
}

// NewService constructs an insights service
func NewService(store Store, completer ai.Completer, logger zerolog.Logger) *Service {
	return &Service{store: store, ai: completer, logger: logger.With().Str("component", "insights").Logger()}
}

// RiskReasoning explains the patient's current risk score in plain language,
// grounded in their profile and up to ten recent visits.
func (s *Service) RiskReasoning(ctx context.Context, patientID string) (string, error) {
	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return "", err
	}
	history, err := s.store.ListVisits(ctx, patientID, 10)
	if err != nil {
		return "", err
	}

	text, err := s.ai.Complete(ctx, ai.Request{
		System: reasoningSystem,
		Prompt: reasoningPrompt(patient, history),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func reasoningPrompt(p *models.Patient, history []*models.Visit) string {
	summaries := make([]string, 0, len(history))
	for i, v := range history {
		parts := []string{fmt.Sprintf("Visit %d (%s):", i+1, v.Date)}
		parts = append(parts, fmt.Sprintf("Risk: %d%% -> %d%%", v.RiskScoreBefore, v.RiskScoreAfter))
		if v.SOAPNote.Assessment != "" {
			parts = append(parts, "Assessment: "+v.SOAPNote.Assessment)
		}
		if len(v.RiskFactors) > 0 {
			factors := make([]string, 0, len(v.RiskFactors))
			for _, f := range v.RiskFactors {
				factors = append(factors, fmt.Sprintf("%s (%s)", f.Factor, f.Severity))
			}
			parts = append(parts, "Risk factors: "+strings.Join(factors, ", "))
		}
		if v.ClinicalNote != "" {
			parts = append(parts, "Note: "+excerpt(v.ClinicalNote, noteExcerptLimit))
		}
		summaries = append(summaries, strings.Join(parts, " | "))
	}

	historySection := "No visit history recorded yet."
	if len(summaries) > 0 {
		historySection = "Recent visit history (most recent first):\n" + strings.Join(summaries, "\n")
	}

	return fmt.Sprintf(`You are a clinical risk reasoning assistant. Given a patient's current profile and their visit history, provide a concise, plain-language explanation of WHY their current risk score is what it is.

Patient: %s, %d years old
Conditions: %s
Current risk score: %d%%
Risk trend: %s
Prior hospitalizations: %d
Medications: %s

%s

Write 2-4 sentences explaining the reasoning behind the current risk score. Consider trends across visits, risk factor changes, and the patient's overall condition trajectory. Be specific and reference actual data from the visits. Use plain, warm language suitable for both clinical staff and patients. Do NOT use markdown formatting.`,
		p.Name, p.Age, orNone(strings.Join(p.Conditions, ", ")),
		p.RiskScore, p.RiskTrend, p.PriorHospitalizations,
		orNone(medicationNames(p.Medications)), historySection)
}

// DailySummary writes a short "what to do today" bullet list for the patient
func (s *Service) DailySummary(ctx context.Context, patientID string) (string, error) {
	patient, err := s.store.GetPatient(ctx, patientID)
	if err != nil {
		return "", err
	}

	text, err := s.ai.Complete(ctx, ai.Request{Prompt: dailySummaryPrompt(patient), Fallback: true})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func dailySummaryPrompt(p *models.Patient) string {
	medLines := make([]string, 0, len(p.Medications))
	for _, m := range p.Medications {
		line := m.Name
		if m.Dosage != "" {
			line += " " + m.Dosage
		}
		if m.Frequency != "" {
			line += " - " + m.Frequency
		}
		medLines = append(medLines, line)
	}
	medList := "None listed"
	if len(medLines) > 0 {
		medList = strings.Join(medLines, "\n")
	}
	conditions := orNone(strings.Join(p.Conditions, ", "))

	return fmt.Sprintf(`You are a caring health assistant. Given this patient's information, write a short "What you need to do today" summary in plain language (4-6 bullet points). Be warm and clear. Include:
- Medications to take today (with dosage/timing if known)
- Current risk level (%d%%) and what it means in one simple line
- Their conditions (%s) and any daily self-care that applies
- One practical reminder (e.g. weigh yourself, limit salt, when to call the nurse)

Patient: %s, age %d.
Risk score: %d%%.
Conditions: %s
Medications:
%s

Return only the bullet list, no heading. Use a dash or bullet for each point. Keep each point 1-2 sentences.`,
		p.RiskScore, conditions, p.Name, p.Age, p.RiskScore, conditions, medList)
}

func medicationNames(meds []models.Medication) string {
	names := make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Name)
	}
	return strings.Join(names, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "None listed"
	}
	return s
}

// excerpt truncates to at most limit bytes without splitting a rune
func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
