package texttospeech

import "context"

// Synthesizer converts an utterance to spoken audio.
type Synthesizer interface {
	// Synthesize returns encoded audio for the given text. The format of the
	// returned bytes is provider specific (typically MP3).
	Synthesize(ctx context.Context, text string, opts ...SynthesisOption) ([]byte, error)
}

type SynthesisOptions struct {
	Language string
	VoiceID  string
}

type SynthesisOption func(*SynthesisOptions)

// WithLanguage selects a voice appropriate for the given language code.
func WithLanguage(language string) SynthesisOption {
	return func(o *SynthesisOptions) {
		o.Language = language
	}
}

// WithVoiceID pins a specific provider voice, bypassing language selection.
func WithVoiceID(voiceID string) SynthesisOption {
	return func(o *SynthesisOptions) {
		o.VoiceID = voiceID
	}
}
