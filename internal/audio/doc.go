// Package audio handles the two binary formats the service touches:
// PCM-16 in a WAV container for captured utterances, and raw 16-bit
// little-endian PCM converted to normalized float frames for playback.
package audio
