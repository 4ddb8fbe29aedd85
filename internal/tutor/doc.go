// Package tutor defines the core domain types shared across the service:
// chat sessions, messages, structured tutor responses, vocabulary items,
// and the portable encoded-audio input shape.
package tutor
