package capture

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/audio"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
)

// MaxUploadBytes is the ceiling for file-sourced audio (20 MiB).
const MaxUploadBytes = 20 * 1024 * 1024

// CaptureMimeType is the container format live recordings are finalized
// into before base64 encoding.
const CaptureMimeType = "audio/wav"

// Config contains capture adapter configuration.
type Config struct {
	SampleRate int // capture sample rate, e.g. 16000
	Channels   int // 1 (mono)
}

// Adapter acquires microphone audio through a lazily-initialized backend
// context. The microphone is an exclusive resource: one recording at a
// time, enforced here by the recording flag.
type Adapter struct {
	config Config
	logger *slog.Logger

	mu        sync.Mutex
	backend   *malgo.AllocatedContext
	device    *malgo.Device
	recording bool
	pcm       []byte
}

// NewAdapter creates an audio capture adapter. The audio backend is not
// initialized until the first recording starts.
func NewAdapter(config Config, logger *slog.Logger) *Adapter {
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.Channels <= 0 {
		config.Channels = audio.DefaultChannels
	}

	return &Adapter{
		config: config,
		logger: logger,
	}
}

// Start opens the microphone and begins buffering PCM chunks as they
// arrive. Any failure tears down partially-opened state so the adapter is
// never stuck mid-recording.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recording {
		return fmt.Errorf("recording already in progress")
	}

	if err := a.ensureBackendLocked(); err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(a.config.Channels)
	deviceConfig.SampleRate = uint32(a.config.SampleRate)

	a.pcm = a.pcm[:0]

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			a.mu.Lock()
			a.pcm = append(a.pcm, input...)
			a.mu.Unlock()
		},
	}

	device, err := malgo.InitDevice(a.backend.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	a.device = device
	a.recording = true

	a.logger.Info("Recording started",
		slog.Int("sample_rate", a.config.SampleRate),
		slog.Int("channels", a.config.Channels),
	)

	return nil
}

// Stop finalizes the buffered chunks into one WAV blob, base64-encodes it
// and returns the portable input shape. The capture device is released
// unconditionally, even when finalization fails.
func (a *Adapter) Stop() (*tutor.AudioInput, error) {
	a.mu.Lock()
	if !a.recording {
		a.mu.Unlock()
		return nil, fmt.Errorf("no recording in progress")
	}
	device := a.device
	a.device = nil
	a.recording = false
	a.mu.Unlock()

	// Uninit waits for the data callback to drain, so it must run outside
	// the lock the callback takes. The microphone is released here
	// regardless of what happens below.
	device.Uninit()

	a.mu.Lock()
	raw := a.pcm
	a.pcm = nil
	a.mu.Unlock()

	samples, err := audio.DecodePCM16(raw)
	if err != nil {
		return nil, fmt.Errorf("captured stream is unusable: %w", err)
	}

	wav, err := audio.EncodeWAV(samples, a.config.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize recording: %w", err)
	}

	a.logger.Info("Recording finalized",
		slog.Int("samples", len(samples)),
		slog.Float64("duration_seconds", float64(len(samples))/float64(a.config.SampleRate)),
	)

	return &tutor.AudioInput{
		Base64Data: base64.StdEncoding.EncodeToString(wav),
		MimeType:   CaptureMimeType,
	}, nil
}

// Recording reports whether a capture is currently active.
func (a *Adapter) Recording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

// Close tears down any active recording and the backend context.
func (a *Adapter) Close() {
	a.mu.Lock()
	device := a.device
	backend := a.backend
	a.device = nil
	a.backend = nil
	a.recording = false
	a.pcm = nil
	a.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	if backend != nil {
		_ = backend.Uninit()
		backend.Free()
	}
}

// ensureBackendLocked lazily initializes the audio backend context.
// Callers must hold the lock.
func (a *Adapter) ensureBackendLocked() error {
	if a.backend != nil {
		return nil
	}

	backend, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize audio backend: %w", err)
	}

	a.backend = backend
	return nil
}

// LoadFile reads a file-sourced audio upload and returns the same shape as
// a live recording. Wrong-type and oversize files are rejected before any
// bytes are read into a message.
func LoadFile(path string) (*tutor.AudioInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if info.Size() > MaxUploadBytes {
		return nil, fmt.Errorf("file is too large: %d bytes (limit is 20 MiB)", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	mimeType := detectMimeType(path, data)
	if !strings.HasPrefix(mimeType, "audio/") {
		return nil, fmt.Errorf("not an audio file: detected type %s", mimeType)
	}

	// Uploads exported from browsers sometimes arrive as data URIs; strip
	// the prefix and keep the payload.
	if b64, ok := stripDataURI(string(data)); ok {
		return &tutor.AudioInput{Base64Data: b64, MimeType: mimeType}, nil
	}

	return &tutor.AudioInput{
		Base64Data: base64.StdEncoding.EncodeToString(data),
		MimeType:   mimeType,
	}, nil
}

// detectMimeType resolves the MIME type from the file extension, falling
// back to content sniffing.
func detectMimeType(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".aac":
		return "audio/aac"
	}
	return http.DetectContentType(data)
}

// stripDataURI extracts the base64 payload from a "data:...;base64," URI.
func stripDataURI(s string) (string, bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", false
	}
	_, payload, found := strings.Cut(s, ",")
	if !found {
		return "", false
	}
	return strings.TrimSpace(payload), true
}
