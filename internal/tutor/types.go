package tutor

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Kind identifies the payload type of a chat message.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// ErrorReplyText is the fixed user-facing text attached to a model message
// when the inference round-trip fails.
const ErrorReplyText = "Sorry, I encountered an error connecting to the Tutor. Please check your API Key or try again."

// VocabItem is a single vocabulary entry. Word is the natural key used for
// deduplication in the vocabulary bank.
type VocabItem struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Notes   string `json:"notes,omitempty"`
}

// TutorResponse is the structured feedback produced by the inference
// gateway. It is immutable once attached to a message.
type TutorResponse struct {
	Transcription string      `json:"transcription"`
	Translation   string      `json:"translation"`
	Explanation   string      `json:"explanation"`
	Vocabulary    []VocabItem `json:"vocabulary"`
}

// Message is a single entry in a session's append-only log.
//
// A model-role message is a tagged union: either Response is set (structured
// reply) or Error is true (error placeholder), never both and never neither.
// The constructors below enforce this.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Kind      Kind           `json:"type"`
	Content   string         `json:"content"`
	Response  *TutorResponse `json:"response,omitempty"`
	Error     bool           `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Session is one ordered conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AudioInput is the portable encoded representation of captured or uploaded
// audio. It is ephemeral: only the base64 payload survives as message content.
type AudioInput struct {
	Base64Data string `json:"base64Data"`
	MimeType   string `json:"mimeType"`
}

// DefaultSessionTitle is assigned to sessions created before any message
// has produced a derived title.
const DefaultSessionTitle = "New Conversation"

// NewID produces a short unique opaque token for sessions and messages.
func NewID() string {
	id := uuid.NewString()
	// The first UUID segment is plenty for in-process uniqueness and keeps
	// logs and persisted JSON compact.
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// NewUserMessage constructs a user message. Audio payloads carry the base64
// data as content, text messages carry the raw text.
func NewUserMessage(kind Kind, content string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewModelMessage constructs a model message carrying a structured response.
// The raw serialized copy is stored in content for forward compatibility.
func NewModelMessage(resp *TutorResponse, raw string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleModel,
		Kind:      KindText,
		Content:   raw,
		Response:  resp,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage constructs the error-placeholder variant of a model
// message. It carries no structured response.
func NewErrorMessage(text string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleModel,
		Kind:      KindText,
		Content:   text,
		Error:     true,
		Timestamp: time.Now(),
	}
}

// Clone returns a deep copy of the session so callers can hand out
// snapshots without exposing store-owned slices.
func (s *Session) Clone() Session {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return out
}
