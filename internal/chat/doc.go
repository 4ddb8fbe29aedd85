// Package chat implements the conversation orchestrator: the state machine
// driving optimistic user-message insertion, the inference round-trip,
// response or error substitution, and derived-title computation.
package chat
