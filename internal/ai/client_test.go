package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nandhanalahari/preva/internal/config"
)

// fallbackServer answers chat completions per model: a status override fails
// the call, anything else succeeds with a fixed message.
func fallbackServer(t *testing.T, statusByModel map[string]int, calls *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		*calls = append(*calls, req.Model)

		if status, ok := statusByModel[req.Model]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "unavailable", "type": "server_error"},
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok from " + req.Model}},
			},
		})
	}))
}

func newTestClient(url string, models []string) *Client {
	return NewClient(config.AIConfig{
		APIKey:  "test-key",
		BaseURL: url + "/v1",
		Models:  models,
	})
}

func TestCompleteAdvancesOnOverload(t *testing.T) {
	var calls []string
	srv := fallbackServer(t, map[string]int{"first": 429, "second": 503}, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, []string{"first", "second", "third"})
	got, err := client.Complete(context.Background(), Request{Prompt: "hi", Fallback: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok from third" {
		t.Errorf("got %q, want completion from third model", got)
	}
	if len(calls) != 3 {
		t.Errorf("got %d calls, want 3: %v", len(calls), calls)
	}
}

func TestCompleteStopsOnOtherErrors(t *testing.T) {
	var calls []string
	srv := fallbackServer(t, map[string]int{"first": 500}, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, []string{"first", "second"})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi", Fallback: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(calls) != 1 {
		t.Errorf("got %d calls, want 1 (no fallback on 500): %v", len(calls), calls)
	}
}

func TestCompleteWithoutFallbackSurfacesOverload(t *testing.T) {
	var calls []string
	srv := fallbackServer(t, map[string]int{"first": 429}, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, []string{"first", "second"})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected the 429 to surface")
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Errorf("got calls %v, want a single call to the primary model", calls)
	}
}

func TestCompleteAllModelsOverloaded(t *testing.T) {
	var calls []string
	srv := fallbackServer(t, map[string]int{"first": 429, "second": 429}, &calls)
	defer srv.Close()

	client := newTestClient(srv.URL, []string{"first", "second"})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi", Fallback: true})
	if err == nil {
		t.Fatal("expected error when every model is overloaded")
	}
	if len(calls) != 2 {
		t.Errorf("got %d calls, want 2: %v", len(calls), calls)
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	client := NewClient(config.AIConfig{Models: []string{"m"}})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}
