// Package session implements the in-memory session store: an ordered
// collection of conversation sessions with an active-session pointer,
// mutated only through id-addressed operations and persisted through the
// storage collaborator.
package session
