// Package storage provides the opaque key-value persistence collaborator.
// Values are JSON-serialized by callers; a malformed stored value degrades
// to empty state on load and never crashes the service.
package storage
