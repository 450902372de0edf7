package telephony

import "context"

// CallController issues control-plane actions against a live call.
//
// Every method is a blocking request to the provider's REST API and is
// expected to respect context deadlines. A returned error means the action
// was not acknowledged; callers decide whether that is recoverable.
type CallController interface {
	// Answer picks up a ringing call.
	Answer(ctx context.Context, callID string) error
	// Speak plays a spoken utterance to the caller.
	Speak(ctx context.Context, callID string, text string, opts ...SpeakOption) error
	// StartRecording begins capturing the caller's next utterance. The
	// provider reports the finished recording through a speech event.
	StartRecording(ctx context.Context, callID string) error
	// Transfer hands the call off to a human at the given number.
	Transfer(ctx context.Context, callID string, to string) error
	// Hangup terminates the call.
	Hangup(ctx context.Context, callID string) error
}

type SpeakOptions struct {
	Language string
	Voice    string
}

type SpeakOption func(*SpeakOptions)

// WithLanguage sets the spoken language for providers that support it.
func WithLanguage(language string) SpeakOption {
	return func(o *SpeakOptions) {
		o.Language = language
	}
}

// WithVoice overrides the provider voice.
func WithVoice(voice string) SpeakOption {
	return func(o *SpeakOptions) {
		o.Voice = voice
	}
}
