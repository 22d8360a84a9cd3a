// internal/prediction/client.go
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"silicoshield/internal/models"
)

// ErrAnalysisFailed covers every per-image failure mode: transport
// errors, non-2xx responses, malformed payloads and explicit failure
// payloads are all reported uniformly.
var ErrAnalysisFailed = errors.New("analysis failed")

// response mirrors the prediction endpoint's JSON payload.
type response struct {
	Success bool `json:"success"`
	Results []struct {
		HasSilicosis    bool            `json:"hasSilicosis"`
		Confidence      float64         `json:"confidence"`
		Severity        models.Severity `json:"severity,omitempty"`
		Findings        []string        `json:"findings"`
		Recommendations []string        `json:"recommendations"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// Client talks to the remote prediction service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a prediction client for the given base URL. apiKey
// may be empty; it is only attached when no bearer token is supplied.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Predict submits one image as multipart form data and returns the first
// parsed result. token, when non-empty, is sent as a bearer credential;
// otherwise the static API key header is used if configured.
func (c *Client) Predict(ctx context.Context, filename string, data []byte, token string) (*models.AnalysisResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("images", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/predict", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	switch {
	case token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case c.apiKey != "":
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: prediction endpoint returned %d", ErrAnalysisFailed, resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrAnalysisFailed, err)
	}
	if !payload.Success || len(payload.Results) == 0 {
		if payload.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, payload.Error)
		}
		return nil, ErrAnalysisFailed
	}

	// Only results[0] is used.
	r := payload.Results[0]
	result := &models.AnalysisResult{
		HasSilicosis:    r.HasSilicosis,
		Confidence:      clampConfidence(r.Confidence),
		Findings:        r.Findings,
		Recommendations: r.Recommendations,
	}
	if r.HasSilicosis {
		result.Severity = r.Severity
	}
	return result, nil
}

// Health checks the prediction service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("prediction service unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("prediction service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func clampConfidence(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v + 0.5)
}
