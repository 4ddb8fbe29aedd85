package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
)

// ErrMissingCredential is returned when a gateway call is attempted without
// an API key configured. Credential absence is a per-call precondition, not
// a construction error, so a keyless process can still start.
var ErrMissingCredential = fmt.Errorf("API key is missing: set the GEMINI_API_KEY environment variable")

// Config contains inference gateway client configuration.
type Config struct {
	Endpoint      string // Base URL of the generateContent API
	APIKey        string
	AnalyzeModel  string
	SpeechModel   string
	Voice         string
	Timeout       time.Duration
	MaxConcurrent int
}

// Client talks to the inference service over HTTP. Calls are capped by a
// semaphore; failed calls are never retried here, retry is a user action.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Stats represents gateway client statistics.
type Stats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new inference gateway client.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.AnalyzeModel == "" {
		return nil, fmt.Errorf("analyze model cannot be empty")
	}

	if config.SpeechModel == "" {
		return nil, fmt.Errorf("speech model cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	if config.Voice == "" {
		config.Voice = "Kore"
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Analyze sends text or encoded audio to the tutoring model and returns the
// structured response. Exactly one of text/audio should be set.
func (c *Client) Analyze(ctx context.Context, text string, audio *tutor.AudioInput) (*tutor.TutorResponse, error) {
	var parts []part
	switch {
	case audio != nil:
		parts = []part{
			{InlineData: &inlineData{MimeType: audio.MimeType, Data: audio.Base64Data}},
			{Text: "Analyze this audio."},
		}
	case text != "":
		parts = []part{{Text: text}}
	default:
		return nil, fmt.Errorf("no input provided")
	}

	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   tutorResponseSchema(),
		},
	}

	raw, err := c.generate(ctx, c.config.AnalyzeModel, &req)
	if err != nil {
		return nil, err
	}

	if raw.Text == "" {
		return nil, fmt.Errorf("empty response from inference service")
	}

	var resp tutor.TutorResponse
	if err := json.Unmarshal([]byte(raw.Text), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse tutor response: %w", err)
	}

	return &resp, nil
}

// Synthesize converts text to speech and returns the raw 16-bit PCM bytes
// embedded in the response. Fails when no audio payload is present.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required for speech generation")
	}

	req := generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.config.Voice},
				},
			},
		},
	}

	raw, err := c.generate(ctx, c.config.SpeechModel, &req)
	if err != nil {
		return nil, err
	}

	if raw.InlineData == nil || raw.InlineData.Data == "" {
		return nil, fmt.Errorf("no audio generated by inference service")
	}

	pcm, err := base64.StdEncoding.DecodeString(raw.InlineData.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}

	return pcm, nil
}

// generate performs a single generateContent round-trip against the given
// model and returns the first part of the first candidate.
func (c *Client) generate(ctx context.Context, model string, req *generateRequest) (*part, error) {
	if c.config.APIKey == "" {
		return nil, ErrMissingCredential
	}

	// Acquire semaphore to cap concurrent in-flight calls
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	result, err := c.doRequest(ctx, model, req)
	if err != nil {
		c.incrementFailedRequests()
		return nil, err
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))
	return result, nil
}

// doRequest performs a single HTTP request to the inference API.
func (c *Client) doRequest(ctx context.Context, model string, req *generateRequest) (*part, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.config.Endpoint, model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)
	httpReq.Header.Set("User-Agent", "Darija-Tutor/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from inference service")
	}

	return &genResp.Candidates[0].Content.Parts[0], nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics.
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return Stats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}
