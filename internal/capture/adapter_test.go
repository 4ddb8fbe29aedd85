package capture

import (
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestLoadFileEncodesAudio(t *testing.T) {
	// Minimal RIFF/WAVE prefix is enough; LoadFile trusts the extension
	raw := append([]byte("RIFF\x24\x00\x00\x00WAVE"), make([]byte, 32)...)
	path := writeTestFile(t, "utterance.wav", raw)

	input, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if input.MimeType != "audio/wav" {
		t.Errorf("Expected audio/wav, got %s", input.MimeType)
	}

	decoded, err := base64.StdEncoding.DecodeString(input.Base64Data)
	if err != nil {
		t.Fatalf("Payload is not valid base64: %v", err)
	}
	if len(decoded) != len(raw) {
		t.Fatalf("Expected %d bytes after round-trip, got %d", len(raw), len(decoded))
	}
	for i := range raw {
		if decoded[i] != raw[i] {
			t.Fatalf("Byte %d differs after round-trip", i)
		}
	}
}

func TestLoadFileRejectsOversize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	// Sparse file: the size check runs on Stat, before any read
	if err := f.Truncate(MaxUploadBytes + 1); err != nil {
		t.Fatalf("Failed to grow test file: %v", err)
	}
	f.Close()

	_, err = LoadFile(path)
	if err == nil {
		t.Fatal("Expected error for oversize file")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got: %v", err)
	}
}

func TestLoadFileRejectsNonAudio(t *testing.T) {
	path := writeTestFile(t, "notes.txt", []byte("this is not audio"))

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("Expected error for non-audio file")
	}
	if !strings.Contains(err.Error(), "not an audio file") {
		t.Errorf("Expected type error, got: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFileStripsDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("RIFF fake audio"))
	path := writeTestFile(t, "export.wav", []byte("data:audio/wav;base64,"+payload))

	input, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if input.Base64Data != payload {
		t.Errorf("Expected bare payload %q, got %q", payload, input.Base64Data)
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		data     []byte
		expected string
	}{
		{
			name:     "wav extension",
			path:     "a.wav",
			expected: "audio/wav",
		},
		{
			name:     "mp3 extension",
			path:     "a.MP3",
			expected: "audio/mpeg",
		},
		{
			name:     "ogg extension",
			path:     "a.ogg",
			expected: "audio/ogg",
		},
		{
			name:     "m4a extension",
			path:     "a.m4a",
			expected: "audio/mp4",
		},
		{
			name:     "unknown extension sniffs content",
			path:     "a.bin",
			data:     []byte("plain text content here, long enough to sniff"),
			expected: "text/plain; charset=utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMimeType(tt.path, tt.data); got != tt.expected {
				t.Errorf("detectMimeType(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "standard data uri",
			input:    "data:audio/wav;base64,UklGRg==",
			expected: "UklGRg==",
			ok:       true,
		},
		{
			name:  "not a data uri",
			input: "UklGRg==",
			ok:    false,
		},
		{
			name:  "data prefix without payload separator",
			input: "data:audio/wav;base64",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stripDataURI(tt.input)
			if ok != tt.ok {
				t.Fatalf("stripDataURI(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.expected {
				t.Errorf("stripDataURI(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAdapterNotRecordingInitially(t *testing.T) {
	a := NewAdapter(Config{SampleRate: 16000, Channels: 1}, testLogger())
	defer a.Close()

	if a.Recording() {
		t.Error("Expected new adapter to not be recording")
	}
	if _, err := a.Stop(); err == nil {
		t.Error("Expected Stop without Start to fail")
	}
}
