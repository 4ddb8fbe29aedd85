package playback

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/audio"
)

// Engine plays raw 16-bit little-endian PCM through the default audio
// output. The output context is a process-wide shared resource: created
// once on first use, resumed when the platform suspends it, never torn
// down mid-process. Recreating it per call leaks device handles.
type Engine struct {
	sampleRate int
	channels   int
	logger     *slog.Logger

	once    sync.Once
	otoCtx  *oto.Context
	initErr error
}

// NewEngine creates a playback engine for the given PCM stream parameters.
// The output device is not opened until the first Play call.
func NewEngine(sampleRate, channels int, logger *slog.Logger) *Engine {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultPlaybackRate
	}
	if channels <= 0 {
		channels = audio.DefaultChannels
	}

	return &Engine{
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger,
	}
}

// PlayBase64 decodes a base64-encoded PCM buffer and plays it, returning
// only after playback finishes. Decode and device errors propagate to the
// caller; nothing is retried here.
func (e *Engine) PlayBase64(ctx context.Context, b64 string) error {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return fmt.Errorf("failed to decode audio payload: %w", err)
	}
	return e.Play(ctx, raw)
}

// Play converts raw PCM bytes to normalized float frames and plays them.
// Concurrent calls may overlap at the device level; the engine does no
// queuing of its own.
func (e *Engine) Play(ctx context.Context, pcm []byte) error {
	samples, err := audio.DecodePCM16(pcm)
	if err != nil {
		return err
	}

	frames := audio.PCM16ToFloat32(samples)

	otoCtx, err := e.context()
	if err != nil {
		return err
	}

	// The platform may suspend a context that was created before any user
	// gesture; resume is a no-op when it is already running.
	if err := otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume audio output: %w", err)
	}

	player := otoCtx.NewPlayer(bytes.NewReader(audio.Float32LEBytes(frames)))
	player.Play()

	e.logger.Debug("Playback started",
		slog.Int("frames", len(frames)/e.channels),
		slog.Int("sample_rate", e.sampleRate),
	)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return player.Close()
}

// context lazily creates the shared output context.
func (e *Engine) context() (*oto.Context, error) {
	e.once.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   e.sampleRate,
			ChannelCount: e.channels,
			Format:       oto.FormatFloat32LE,
		}

		otoCtx, ready, err := oto.NewContext(op)
		if err != nil {
			e.initErr = fmt.Errorf("failed to open audio output: %w", err)
			return
		}
		<-ready

		e.otoCtx = otoCtx
		e.logger.Info("Audio output context created",
			slog.Int("sample_rate", e.sampleRate),
			slog.Int("channels", e.channels),
		)
	})

	return e.otoCtx, e.initErr
}
