// Command stubgateway runs a fake inference endpoint for local testing.
// It answers analyze requests with a canned structured tutor response and
// speech requests with a short base64 PCM tone, so the full send and
// pronunciation paths can be exercised without credentials.
package main

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"
)

type tutorResponse struct {
	Transcription string      `json:"transcription"`
	Translation   string      `json:"translation"`
	Explanation   string      `json:"explanation"`
	Vocabulary    []vocabItem `json:"vocabulary"`
}

type vocabItem struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Notes   string `json:"notes,omitempty"`
}

func generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Error parsing request JSON", http.StatusBadRequest)
		return
	}

	log.Printf("Request: %s (%d bytes)", r.URL.Path, len(body))

	// Simulate inference latency
	time.Sleep(200 * time.Millisecond)

	var part map[string]any
	if strings.Contains(r.URL.Path, "tts") {
		part = map[string]any{
			"inlineData": map[string]any{
				"mimeType": "audio/L16;codec=pcm;rate=24000",
				"data":     base64.StdEncoding.EncodeToString(tonePCM()),
			},
		}
	} else {
		resp := tutorResponse{
			Transcription: "لاباس (Labas)",
			Translation:   "I'm fine",
			Explanation:   "A common Darija greeting response meaning all is well.",
			Vocabulary: []vocabItem{
				{Word: "لاباس (Labas)", Meaning: "fine, no harm", Notes: "Also used as a question: Labas?"},
			},
		}
		raw, _ := json.Marshal(resp)
		part = map[string]any{"text": string(raw)}
	}

	out := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{part},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// tonePCM renders half a second of 440 Hz mono PCM-16 at 24 kHz.
func tonePCM() []byte {
	const (
		sampleRate = 24000
		seconds    = 0.5
		frequency  = 440.0
	)

	numSamples := int(sampleRate * seconds)
	out := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		t := float64(i) / sampleRate
		sample := int16(12000 * math.Sin(2*math.Pi*frequency*t))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

func main() {
	port := flag.Int("port", 8090, "Port to listen on")
	flag.Parse()

	http.HandleFunc("/models/", generateHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Stub inference gateway listening on %s", addr)
	log.Printf("Point gateway.endpoint at http://localhost%s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
