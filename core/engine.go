package callflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/sessions"
	"github.com/koscakluka/receptionist/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// OutcomeKind classifies the result of one conversation cycle.
type OutcomeKind string

const (
	// OutcomeContinue carries the next assistant utterance; the call goes on.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomeTransfer carries a farewell utterance and the hand-off number.
	OutcomeTransfer OutcomeKind = "transfer"
	// OutcomeClarificationNeeded means the utterance could not be understood.
	// No turn was appended; the caller should be re-prompted.
	OutcomeClarificationNeeded OutcomeKind = "clarification_needed"
	// OutcomeEngineUnavailable means response generation failed. The session
	// stays active; the caller should hear an apology and be re-prompted.
	OutcomeEngineUnavailable OutcomeKind = "engine_unavailable"
)

// errCallTornDown reports that the session was removed while a conversation
// cycle was in flight. It is distinct from the session never existing:
// callers must drop all further call control actions instead of falling back
// to a spoken recovery.
var errCallTornDown = errors.New("session removed mid-cycle")

// Outcome is the engine's decision for one completed speech cycle.
type Outcome struct {
	Kind  OutcomeKind
	Reply string
	// TransferTarget is set for OutcomeTransfer.
	TransferTarget string
	// Language is the session language after any drift, for synthesis.
	Language string
}

// Engine turns a caller utterance into the next assistant utterance and
// call decision. It never synthesizes speech itself; audio generation stays
// with the caller so dialog decisions remain independent of it.
type Engine struct {
	store       sessions.Store
	transcriber speechtotext.Transcriber
	generator   llms.Generator
	policy      TransferPolicy

	supportedLanguages []string
	minConfidence      float64
	transcribeTimeout  time.Duration
	generateTimeout    time.Duration
}

type EngineOption func(*Engine)

// WithTransferPolicy replaces the default keyword policy.
func WithTransferPolicy(policy TransferPolicy) EngineOption {
	return func(e *Engine) {
		if policy != nil {
			e.policy = policy
		}
	}
}

// WithSupportedLanguages limits which detected languages the session may
// drift to.
func WithSupportedLanguages(languages ...string) EngineOption {
	return func(e *Engine) { e.supportedLanguages = languages }
}

// WithMinConfidence sets the transcript confidence below which the engine
// asks for clarification instead of responding.
func WithMinConfidence(confidence float64) EngineOption {
	return func(e *Engine) { e.minConfidence = confidence }
}

// WithTranscribeTimeout bounds the transcription provider call.
func WithTranscribeTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) { e.transcribeTimeout = timeout }
}

// WithGenerateTimeout bounds the generation provider call.
func WithGenerateTimeout(timeout time.Duration) EngineOption {
	return func(e *Engine) { e.generateTimeout = timeout }
}

func NewEngine(store sessions.Store, transcriber speechtotext.Transcriber, generator llms.Generator, opts ...EngineOption) *Engine {
	engine := &Engine{
		store:              store,
		transcriber:        transcriber,
		generator:          generator,
		policy:             NewKeywordTransferPolicy(),
		supportedLanguages: []string{"en", "es", "zh", "vi", "ko"},
		minConfidence:      0.3,
		transcribeTimeout:  10 * time.Second,
		generateTimeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Respond runs one conversation cycle for the recording at audioURL.
//
// Provider failures are folded into recoverable outcomes
// (OutcomeClarificationNeeded, OutcomeEngineUnavailable) rather than
// returned. The expected errors are sessions.ErrNotFound when the call has
// no session at all, and errCallTornDown when the session was removed while
// the cycle was in flight.
func (e *Engine) Respond(ctx context.Context, callID string, audioURL string) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "conversation cycle")
	span.SetAttributes(attribute.String("call_id", callID))
	defer span.End()

	session, err := e.store.Get(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	transcription, err := e.transcribe(ctx, audioURL, session.Language)
	if err != nil {
		span.RecordError(err)
		logger.Warn("transcription failed, asking for clarification",
			"call_id", callID, "error", err)
		return &Outcome{Kind: OutcomeClarificationNeeded, Language: session.Language}, nil
	}

	userText := strings.TrimSpace(transcription.Transcript)
	if userText == "" || transcription.Confidence < e.minConfidence {
		logger.Info("unusable transcript, asking for clarification",
			"call_id", callID, "confidence", transcription.Confidence)
		return &Outcome{Kind: OutcomeClarificationNeeded, Language: session.Language}, nil
	}

	// Language drifts turn to turn and never reverts on its own.
	language := session.Language
	if detected := normalizeLanguage(transcription.Language); detected != "" &&
		detected != language && slices.Contains(e.supportedLanguages, detected) {
		if err := e.store.SetLanguage(ctx, callID, detected); err != nil {
			if errors.Is(err, sessions.ErrNotFound) {
				return nil, errCallTornDown
			}
			return nil, fmt.Errorf("failed to update session language: %w", err)
		}
		language = detected
		session.Language = detected
	}

	userTurn := sessions.Turn{
		ID:        uuid.NewString(),
		Role:      sessions.TurnRoleUser,
		Content:   userText,
		AudioURL:  audioURL,
		Timestamp: time.Now(),
	}
	if err := e.store.AppendTurn(ctx, callID, userTurn); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, errCallTornDown
		}
		return nil, fmt.Errorf("failed to append user turn: %w", err)
	}
	session.Turns = append(session.Turns, userTurn)

	assistantText, err := e.generate(ctx, session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("response generation failed", "call_id", callID, "error", err)
		return &Outcome{Kind: OutcomeEngineUnavailable, Language: language}, nil
	}

	shouldTransfer := e.policy.ShouldTransfer(userText, assistantText)

	assistantTurn := sessions.Turn{
		ID:        uuid.NewString(),
		Role:      sessions.TurnRoleAssistant,
		Content:   assistantText,
		Timestamp: time.Now(),
	}
	if err := e.store.AppendTurn(ctx, callID, assistantTurn); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, errCallTornDown
		}
		return nil, fmt.Errorf("failed to append assistant turn: %w", err)
	}

	if shouldTransfer {
		return &Outcome{
			Kind:           OutcomeTransfer,
			Reply:          assistantText,
			TransferTarget: session.Tenant.TransferNumber,
			Language:       language,
		}, nil
	}

	return &Outcome{Kind: OutcomeContinue, Reply: assistantText, Language: language}, nil
}

func (e *Engine) transcribe(ctx context.Context, audioURL, language string) (*speechtotext.Transcription, error) {
	ctx, cancel := context.WithTimeout(ctx, e.transcribeTimeout)
	defer cancel()

	return e.transcriber.Transcribe(ctx, audioURL,
		speechtotext.WithLanguage(language),
		speechtotext.WithLanguageDetection(),
	)
}

func (e *Engine) generate(ctx context.Context, session *sessions.Session) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.generateTimeout)
	defer cancel()

	response, err := e.generator.Generate(ctx, buildMessages(session))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("generator returned an empty response")
	}
	return response, nil
}

// normalizeLanguage reduces provider language tags like "en-US" to the bare
// language code.
func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if idx := strings.IndexByte(language, '-'); idx > 0 {
		language = language[:idx]
	}
	return language
}
