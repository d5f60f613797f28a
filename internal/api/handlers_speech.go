package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nandhanalahari/preva/internal/auth"
)

const maxAudioUpload = 25 << 20 // 25 MB

// Synthesize converts text to MP3 audio for playback
func (h *Handlers) Synthesize(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := auth.RequireNurse(actor); err != nil {
		respondServiceError(w, err)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "No text to speak")
		return
	}

	audio, err := h.speech.Synthesize(r.Context(), req.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"audioBase64": base64.StdEncoding.EncodeToString(audio),
	})
}

// Transcribe converts an uploaded audio recording to text. Both roles use it:
// nurses dictate visit notes, patients record self-reports.
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	text, err := h.speech.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}
