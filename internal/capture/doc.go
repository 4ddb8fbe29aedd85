// Package capture acquires audio from the microphone or from uploaded
// files and renders both into the portable {base64, mime type} shape the
// inference gateway accepts.
package capture
