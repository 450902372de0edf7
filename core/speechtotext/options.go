package speechtotext

import "context"

// Transcription is the result of transcribing one recording.
type Transcription struct {
	// Transcript is the recognized text, empty when nothing was understood.
	Transcript string
	// Language is the detected language code, falling back to the requested
	// language when the provider does not report one.
	Language string
	// Confidence is the provider's confidence in the transcript, in [0, 1].
	Confidence float64
}

// Transcriber converts a recorded utterance, addressed by URL, into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string, opts ...TranscriptionOption) (*Transcription, error)
}

type TranscriptionOptions struct {
	Language       string
	DetectLanguage bool
}

type TranscriptionOption func(*TranscriptionOptions)

// WithLanguage sets the expected language of the recording.
func WithLanguage(language string) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.Language = language
	}
}

// WithLanguageDetection asks the provider to report the language it actually
// heard, allowing the conversation language to drift turn to turn.
func WithLanguageDetection() TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.DetectLanguage = true
	}
}
