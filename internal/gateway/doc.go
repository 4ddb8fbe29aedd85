// Package gateway implements the inference service boundary: structured
// tutor analysis of text or encoded audio, and raw PCM speech synthesis.
package gateway
