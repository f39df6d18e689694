// Package stt defines the Provider interface for batch speech-to-text backends.
//
// An STT provider turns an audio file into a [Transcription]: the full
// transcript text plus ordered, time-stamped [Segment] values in the
// Whisper verbose_json shape. Lyrics alignment only ever rewrites the Text
// field of a segment, so providers are free to fill the remaining metadata
// with whatever their backend reports.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Request describes one transcription job.
type Request struct {
	// AudioPath is the path of a local audio file (mp3, wav, flac, m4a, ...).
	AudioPath string

	// Language is an optional ISO-639-1 hint (e.g., "en"). Empty lets the
	// provider auto-detect.
	Language string

	// Prompt is optional text that guides the recogniser's vocabulary and
	// style, such as the song title and artist.
	Prompt string
}

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe runs speech recognition over the audio in req and returns the
	// full transcription. Returns an error if the audio cannot be read, the
	// backend is unreachable, or ctx is cancelled.
	Transcribe(ctx context.Context, req Request) (*Transcription, error)
}
