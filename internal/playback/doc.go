// Package playback decodes base64-encoded raw PCM speech and plays it
// through a process-wide shared audio output context.
package playback
