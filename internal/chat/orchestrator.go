package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmmrini/New-Darija-Tutor-AI/internal/metrics"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/session"
	"github.com/bmmrini/New-Darija-Tutor-AI/internal/tutor"
)

// titleLimit is the maximum number of visible characters in a derived
// session title before the ellipsis is appended.
const titleLimit = 20

// Gateway is the inference service boundary the orchestrator talks to.
type Gateway interface {
	Analyze(ctx context.Context, text string, audio *tutor.AudioInput) (*tutor.TutorResponse, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player is the PCM playback boundary used by the pronunciation path.
type Player interface {
	Play(ctx context.Context, pcm []byte) error
}

// Orchestrator drives a send interaction end-to-end. Sends for different
// sessions may be in flight concurrently; every mutation after the
// long-latency gateway call addresses the target session by id, so a
// session deleted mid-flight absorbs the late update as a no-op.
type Orchestrator struct {
	gateway  Gateway
	player   Player
	sessions *session.Store
	logger   *slog.Logger
	metrics  *metrics.Metrics

	loading atomic.Bool
}

// NewOrchestrator creates a conversation orchestrator. player and m may be
// nil when playback or metrics are not wired (tests, headless use).
func NewOrchestrator(gw Gateway, player Player, sessions *session.Store, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		gateway:  gw,
		player:   player,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
	}
}

// Loading reports whether a send round-trip is currently in flight.
func (o *Orchestrator) Loading() bool {
	return o.loading.Load()
}

// Send performs one complete interaction: optimistic user-message append,
// inference round-trip, and response (or error placeholder) append.
//
// Exactly one of text/audio should be meaningful; when neither is, Send is
// a no-op. Gateway failures never propagate out of Send; they become an
// error-flagged model message in the session log. The returned id names
// the session the interaction targeted ("" for the no-op case).
func (o *Orchestrator) Send(ctx context.Context, text string, audioIn *tutor.AudioInput) string {
	text = strings.TrimSpace(text)
	if text == "" && audioIn == nil {
		return ""
	}

	// Guarded transition: no active session means create-and-activate.
	// Redundant calls are harmless, the user message below always lands
	// on an existing session.
	sessionID := o.sessions.ActiveID()
	if _, ok := o.sessions.Get(sessionID); !ok {
		sessionID = o.sessions.Create().ID
	}

	userMsg := newUserMessage(text, audioIn)
	count, ok := o.sessions.AppendMessage(sessionID, userMsg)
	if !ok {
		// The session vanished between the guard and the append; nothing
		// to attach the interaction to.
		return sessionID
	}

	if o.metrics != nil {
		o.metrics.RecordMessage(string(userMsg.Role), string(userMsg.Kind))
	}

	// A first text message titles the session immediately; a first audio
	// message leaves the title pending until the transcription arrives.
	firstIsAudio := false
	if count == 1 {
		if userMsg.Kind == tutor.KindText {
			o.sessions.SetTitle(sessionID, DeriveTitle(text))
		} else {
			firstIsAudio = true
		}
	}

	o.loading.Store(true)
	defer o.loading.Store(false)

	startTime := time.Now()
	if o.metrics != nil {
		o.metrics.RecordGatewayRequest()
	}

	resp, err := o.gateway.Analyze(ctx, text, audioIn)
	if err != nil {
		if o.metrics != nil {
			o.metrics.RecordGatewayFailure(time.Since(startTime).Seconds())
		}
		o.logger.Error("Inference round-trip failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)

		// Additive failure: the optimistic user message stays, one error
		// placeholder is appended. A deleted session drops this silently.
		errMsg := tutor.NewErrorMessage(tutor.ErrorReplyText)
		if _, appended := o.sessions.AppendMessage(sessionID, errMsg); appended && o.metrics != nil {
			o.metrics.RecordMessage(string(errMsg.Role), string(errMsg.Kind))
		}
		return sessionID
	}

	if o.metrics != nil {
		o.metrics.RecordGatewaySuccess(time.Since(startTime).Seconds())
	}

	raw, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		raw = []byte("{}")
	}
	modelMsg := tutor.NewModelMessage(resp, string(raw))

	if _, appended := o.sessions.AppendMessage(sessionID, modelMsg); !appended {
		// Session was deleted while the call was in flight.
		o.logger.Warn("Dropping response for deleted session",
			slog.String("session_id", sessionID),
		)
		return sessionID
	}

	if o.metrics != nil {
		o.metrics.RecordMessage(string(modelMsg.Role), string(modelMsg.Kind))
	}

	// Retroactive title for sessions opened with an audio message.
	if firstIsAudio && resp.Transcription != "" {
		o.sessions.SetTitle(sessionID, DeriveTitle(resp.Transcription))
	}

	o.logger.Info("Send completed",
		slog.String("session_id", sessionID),
		slog.Duration("round_trip", time.Since(startTime)),
		slog.Int("vocabulary_items", len(resp.Vocabulary)),
	)

	return sessionID
}

// Pronounce synthesizes the spoken form of text and plays it through the
// output device. Unlike Send, errors here propagate to the caller; the
// user sees them directly.
func (o *Orchestrator) Pronounce(ctx context.Context, text string) error {
	spoken := SpeakableText(text)
	if spoken == "" {
		return fmt.Errorf("no text to pronounce")
	}

	pcm, err := o.gateway.Synthesize(ctx, spoken)
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}

	if o.player == nil {
		return fmt.Errorf("no audio output available")
	}

	if o.metrics != nil {
		o.metrics.RecordPlayback()
	}

	return o.player.Play(ctx, pcm)
}

// newUserMessage builds the optimistic user message for a send.
func newUserMessage(text string, audioIn *tutor.AudioInput) tutor.Message {
	if audioIn != nil {
		return tutor.NewUserMessage(tutor.KindAudio, audioIn.Base64Data)
	}
	return tutor.NewUserMessage(tutor.KindText, text)
}

// DeriveTitle truncates text to the title limit, counting runes so
// multi-byte scripts are not cut mid-character. The ellipsis is appended
// only when something was actually cut.
func DeriveTitle(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= titleLimit {
		return string(runes)
	}
	return string(runes[:titleLimit]) + "..."
}

var leadingScript = regexp.MustCompile(`^[^(]+`)

// SpeakableText derives the text to synthesize from a vocabulary entry in
// "Script (Latin)" form: everything before the first parenthetical. Text
// with no parenthetical is spoken as-is.
func SpeakableText(text string) string {
	if m := leadingScript.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return strings.TrimSpace(text)
}
