// Package providers holds the thin HTTP client used by the local executor
// to call a model-serving endpoint. Anything smarter than a single generate
// call (retry policy, provider-specific auth flows) lives with the caller.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eval-bench/eval-bench/pkg/api"
)

const DefaultEndpoint = "http://localhost:11434/api/generate"

// Client generates completions against an Ollama-compatible endpoint.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type httpClient struct {
	endpoint   string
	model      string
	credential string
	settings   api.InferenceSettings
	client     *http.Client
}

func NewClient(config api.RunConfig) Client {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &httpClient{
		endpoint:   endpoint,
		model:      config.Model,
		credential: config.Credential,
		settings:   config.Settings,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (c *httpClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.settings.Temperature,
			TopP:        c.settings.TopP,
			TopK:        c.settings.TopK,
			NumPredict:  c.settings.MaxTokens,
			Seed:        c.settings.Seed,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("provider response is not valid JSON: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("provider error: %s", out.Error)
	}
	return out.Response, nil
}
