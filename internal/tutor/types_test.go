package tutor

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewIDIsShortAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("Expected non-empty id")
		}
		if strings.Contains(id, "-") {
			t.Errorf("Expected single UUID segment, got %q", id)
		}
		if seen[id] {
			t.Fatalf("Duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}

func TestModelMessageTaggedUnion(t *testing.T) {
	resp := &TutorResponse{Transcription: "لاباس", Translation: "fine"}
	success := NewModelMessage(resp, `{"transcription":"لاباس"}`)

	if success.Role != RoleModel {
		t.Errorf("Expected model role, got %s", success.Role)
	}
	if success.Response == nil || success.Error {
		t.Errorf("Success message must carry a response and no error flag: %+v", success)
	}

	failure := NewErrorMessage(ErrorReplyText)
	if failure.Response != nil || !failure.Error {
		t.Errorf("Error message must carry the error flag and no response: %+v", failure)
	}
	if failure.Content != ErrorReplyText {
		t.Errorf("Expected fixed error text, got %q", failure.Content)
	}
}

func TestMessageJSONShape(t *testing.T) {
	msg := NewUserMessage(KindAudio, "UklGRg==")

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	// The message kind serializes under the legacy "type" key
	if decoded["type"] != "audio" {
		t.Errorf("Expected kind under 'type' key, got %v", decoded["type"])
	}
	if _, present := decoded["error"]; present {
		t.Error("Expected error flag omitted for non-error messages")
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	sess := Session{
		ID:       NewID(),
		Title:    "original",
		Messages: []Message{NewUserMessage(KindText, "Salam")},
	}

	clone := sess.Clone()
	clone.Messages[0].Content = "mutated"
	clone.Title = "mutated"

	if sess.Messages[0].Content != "Salam" {
		t.Error("Clone shares message storage with the original")
	}
	if sess.Title != "original" {
		t.Error("Clone mutation leaked into original title")
	}
}
