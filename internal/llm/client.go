package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// healthTimeout bounds the availability probes against the backend.
const healthTimeout = 5 * time.Second

// Client is a client for an Ollama-compatible generation API.
type Client struct {
	BaseURL string
	Model   string
	client  *http.Client
}

// NewClient creates a new LLM client with the given default model.
func NewClient(baseURL, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		client:  http.DefaultClient,
	}
}

// GenerateRequest represents the request payload for text generation.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse represents a single generation response (or stream fragment).
type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Health probes the backend for availability and verifies that the
// configured model is present. The probe is bounded by a 5 second timeout.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	tagsReq, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	tagsResp, err := c.client.Do(tagsReq)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	defer func() {
		_ = tagsResp.Body.Close()
	}()
	if tagsResp.StatusCode != http.StatusOK {
		return fmt.Errorf("model listing returned status %d", tagsResp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(tagsResp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode model listing: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found on backend", c.Model)
}

// Generate sends a synchronous generation request and returns the full response.
// An empty model selects the client's default.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.Model
	}

	payload := GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return genResp.Response, nil
}

// Stream sends a streaming generation request. The backend replies with
// newline-delimited JSON fragments; callback is invoked once per non-empty
// fragment as it arrives. A callback error aborts the stream. Cancelling ctx
// closes the underlying call and stops further fragments.
func (c *Client) Stream(ctx context.Context, model, prompt string, callback func(chunk string) error) error {
	if model == "" {
		model = c.Model
	}

	payload := GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var fragment GenerateResponse
		if err := json.Unmarshal(line, &fragment); err != nil {
			// Skip malformed fragments
			continue
		}

		if fragment.Response != "" {
			if err := callback(fragment.Response); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
		if fragment.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}
