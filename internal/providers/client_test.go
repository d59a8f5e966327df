package providers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eval-bench/eval-bench/internal/providers"
	"github.com/eval-bench/eval-bench/pkg/api"
)

func TestClientGenerate(t *testing.T) {
	t.Run("sends the model, prompt and options", func(t *testing.T) {
		var received map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected application/json, got %s", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Fatalf("Failed to decode request: %v", err)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"response": "Paris"})
		}))
		defer srv.Close()

		config := api.RunConfig{
			Model:    "llama3",
			Provider: "ollama",
			Endpoint: srv.URL,
		}
		config.Settings.ApplyDefaults()

		client := providers.NewClient(config)
		response, err := client.Generate(context.Background(), "What is the capital of France?")
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if response != "Paris" {
			t.Errorf("Expected response Paris, got %q", response)
		}

		if received["model"] != "llama3" {
			t.Errorf("Expected model llama3, got %v", received["model"])
		}
		if received["stream"] != false {
			t.Errorf("Expected stream false, got %v", received["stream"])
		}
		options, ok := received["options"].(map[string]any)
		if !ok {
			t.Fatalf("Expected an options object, got %v", received["options"])
		}
		if options["temperature"] != api.DefaultTemperature {
			t.Errorf("Expected default temperature, got %v", options["temperature"])
		}
		if options["num_predict"] != float64(api.DefaultMaxTokens) {
			t.Errorf("Expected default num_predict, got %v", options["num_predict"])
		}
	})

	t.Run("credential becomes a bearer token", func(t *testing.T) {
		var authHeader string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
		}))
		defer srv.Close()

		client := providers.NewClient(api.RunConfig{Model: "m", Endpoint: srv.URL, Credential: "secret-token"})
		if _, err := client.Generate(context.Background(), "hi"); err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if authHeader != "Bearer secret-token" {
			t.Errorf("Expected bearer token header, got %q", authHeader)
		}
	})

	t.Run("provider level error is surfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
		}))
		defer srv.Close()

		client := providers.NewClient(api.RunConfig{Model: "m", Endpoint: srv.URL})
		_, err := client.Generate(context.Background(), "hi")
		if err == nil || !strings.Contains(err.Error(), "model not found") {
			t.Errorf("Expected the provider error, got %v", err)
		}
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := providers.NewClient(api.RunConfig{Model: "m", Endpoint: srv.URL})
		_, err := client.Generate(context.Background(), "hi")
		if err == nil || !strings.Contains(err.Error(), "503") {
			t.Errorf("Expected a status error, got %v", err)
		}
	})

	t.Run("context cancellation aborts the call", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := providers.NewClient(api.RunConfig{Model: "m", Endpoint: srv.URL})
		if _, err := client.Generate(ctx, "hi"); err == nil {
			t.Error("Expected a context error")
		}
	})
}
