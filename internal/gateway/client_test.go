package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:      endpoint,
		APIKey:        "test-key",
		AnalyzeModel:  "analyze-model",
		SpeechModel:   "speech-model",
		Voice:         "Zephyr",
		Timeout:       5 * time.Second,
		MaxConcurrent: 2,
	}
}

// candidateBody wraps a single part in the generateContent response shape.
func candidateBody(t *testing.T, p map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{p},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to build response body: %v", err)
	}
	return body
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "empty endpoint",
			mutate:      func(c *Config) { c.Endpoint = "" },
			expectError: true,
		},
		{
			name:        "empty analyze model",
			mutate:      func(c *Config) { c.AnalyzeModel = "" },
			expectError: true,
		},
		{
			name:        "empty speech model",
			mutate:      func(c *Config) { c.SpeechModel = "" },
			expectError: true,
		},
		{
			name:        "zero timeout gets default",
			mutate:      func(c *Config) { c.Timeout = 0 },
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig("https://example.com/v1beta")
			tt.mutate(&config)

			_, err := NewClient(config)
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestAnalyzeParsesStructuredResponse(t *testing.T) {
	structured := tutor.TutorResponse{
		Transcription: "لاباس (Labas)",
		Translation:   "I'm fine",
		Explanation:   "A greeting response.",
		Vocabulary: []tutor.VocabItem{
			{Word: "لاباس (Labas)", Meaning: "fine"},
		},
	}
	raw, _ := json.Marshal(structured)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/models/analyze-model:generateContent") {
			t.Errorf("Unexpected request path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("Expected api key header, got %q", got)
		}

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req["systemInstruction"] == nil {
			t.Error("Expected systemInstruction in analyze request")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(candidateBody(t, map[string]any{"text": string(raw)}))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.Analyze(context.Background(), "Salam!", nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if resp.Translation != "I'm fine" {
		t.Errorf("Expected translation 'I'm fine', got %q", resp.Translation)
	}
	if len(resp.Vocabulary) != 1 || resp.Vocabulary[0].Word != "لاباس (Labas)" {
		t.Errorf("Unexpected vocabulary: %+v", resp.Vocabulary)
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestAnalyzeSendsAudioAsInlineData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("Expected one content with two parts, got %+v", req.Contents)
		}
		first := req.Contents[0].Parts[0]
		if first.InlineData == nil || first.InlineData.MimeType != "audio/wav" {
			t.Errorf("Expected inline audio data first, got %+v", first)
		}
		if req.Contents[0].Parts[1].Text == "" {
			t.Error("Expected instruction text after the audio part")
		}

		w.Write(candidateBody(t, map[string]any{"text": `{"transcription":"x","translation":"y","explanation":"z","vocabulary":[]}`}))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))

	audio := &tutor.AudioInput{Base64Data: "UklGRg==", MimeType: "audio/wav"}
	if _, err := client.Analyze(context.Background(), "", audio); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
}

func TestAnalyzeEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))

	if _, err := client.Analyze(context.Background(), "Salam", nil); err == nil {
		t.Error("Expected error for empty candidate list")
	}

	stats := client.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
	}
}

func TestAnalyzeMalformedStructuredPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateBody(t, map[string]any{"text": "{not json"}))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))

	if _, err := client.Analyze(context.Background(), "Salam", nil); err == nil {
		t.Error("Expected error for malformed structured payload")
	}
}

func TestAnalyzeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))

	_, err := client.Analyze(context.Background(), "Salam", nil)
	if err == nil {
		t.Fatal("Expected error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
}

func TestAnalyzeNoInput(t *testing.T) {
	client, _ := NewClient(testConfig("https://example.com"))

	if _, err := client.Analyze(context.Background(), "", nil); err == nil {
		t.Error("Expected error when neither text nor audio is provided")
	}
}

func TestMissingCredential(t *testing.T) {
	config := testConfig("https://example.com")
	config.APIKey = ""
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("Expected keyless construction to succeed, got: %v", err)
	}

	_, err = client.Analyze(context.Background(), "Salam", nil)
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got: %v", err)
	}

	_, err = client.Synthesize(context.Background(), "Salam")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got: %v", err)
	}
}

func TestSynthesizeDecodesAudio(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0x7F}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/speech-model:generateContent") {
			t.Errorf("Unexpected request path: %s", r.URL.Path)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.GenerationConfig == nil || len(req.GenerationConfig.ResponseModalities) != 1 ||
			req.GenerationConfig.ResponseModalities[0] != "AUDIO" {
			t.Errorf("Expected AUDIO response modality, got %+v", req.GenerationConfig)
		}
		if req.GenerationConfig.SpeechConfig == nil ||
			req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Zephyr" {
			t.Errorf("Expected voice Zephyr, got %+v", req.GenerationConfig.SpeechConfig)
		}

		w.Write(candidateBody(t, map[string]any{
			"inlineData": map[string]any{
				"mimeType": "audio/L16;codec=pcm;rate=24000",
				"data":     base64.StdEncoding.EncodeToString(pcm),
			},
		}))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))

	got, err := client.Synthesize(context.Background(), "لاباس")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(got) != len(pcm) {
		t.Fatalf("Expected %d PCM bytes, got %d", len(pcm), len(got))
	}
	for i := range pcm {
		if got[i] != pcm[i] {
			t.Errorf("Byte %d: expected %#x, got %#x", i, pcm[i], got[i])
		}
	}
}

func TestSynthesizeMissingAudioPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(candidateBody(t, map[string]any{"text": "not audio"}))
	}))
	defer server.Close()

	client, _ := NewClient(testConfig(server.URL))

	if _, err := client.Synthesize(context.Background(), "Salam"); err == nil {
		t.Error("Expected error when no audio payload is returned")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	client, _ := NewClient(testConfig("https://example.com"))

	if _, err := client.Synthesize(context.Background(), ""); err == nil {
		t.Error("Expected error for empty text")
	}
}
