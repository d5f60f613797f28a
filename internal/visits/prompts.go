package visits

import "fmt"

const analyzeSystem = "You are a home health nurse assistant. Analyze clinical visit notes and respond with structured JSON only. Use only facts present in the note; do not infer or add anything."

func analyzePrompt(clinicalNote, patientName string, currentRiskScore int) string {
	return fmt.Sprintf(`You are a home health nurse assistant. Analyze this clinical visit note and return a single JSON object (no markdown, no code fence) with exactly these keys:

- newRiskScore: number 0-100 (estimate readmission/decompensation risk based on the note; consider vitals, symptoms, adherence, and acuity)
- riskFactors: array of { "factor": string, "severity": "critical" | "high", "detail": string } (3-6 items, most important first)
- soapNote: { "subjective": string, "objective": string, "assessment": string, "plan": string } (concise SOAP note)
- voiceSummary: string (2-4 sentences in plain English for the patient: what was found, what they should do, and any follow-up; warm and jargon-free)

Use ONLY information stated in the clinical note. Do not introduce findings, conditions, or medications that are not in the note.

Patient: %s. Current risk score on file: %d%%.

Clinical note:
%s

Return only the JSON object, no other text.`, patientName, currentRiskScore, clinicalNote)
}
