// Package speech wraps the text-to-speech and speech-to-text endpoints of an
// ElevenLabs-compatible provider. Calls are single-shot: no retry, no
// streaming; a non-2xx answer surfaces the provider's status and a truncated
// error body verbatim.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/nandhanalahari/preva/internal/config"
)

// ErrNotConfigured means the provider credential is missing
var ErrNotConfigured = errors.New("speech provider is not configured")

// ProviderError carries the provider's non-2xx answer to the caller
type ProviderError struct {
	Op     string
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Body)
}

const maxErrorBody = 200

// Client calls the speech provider over HTTP
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	voiceID    string
	ttsModel   string
	sttModel   string
}

// NewClient constructs a speech client from configuration
func NewClient(cfg config.SpeechConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		voiceID:    cfg.VoiceID,
		ttsModel:   cfg.TTSModel,
		sttModel:   cfg.STTModel,
	}
}

// Synthesize converts text to MP3 audio bytes
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"text":     strings.TrimSpace(text),
		"model_id": c.ttsModel,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, providerError("tts", resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts response: %w", err)
	}
	return audio, nil
}

// Transcribe converts an audio recording to text. An empty transcript comes
// back as "(no speech detected)" so callers always have something to show.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", err
	}
	if err := writer.WriteField("model_id", c.sttModel); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", providerError("stt", resp)
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode stt response: %w", err)
	}
	text := strings.TrimSpace(decoded.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	return text, nil
}

func providerError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ProviderError{Op: op, Status: resp.StatusCode, Body: string(raw)}
}
