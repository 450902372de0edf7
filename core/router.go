package callflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/sessions"
	"github.com/koscakluka/receptionist/core/telephony"
	"github.com/koscakluka/receptionist/core/tenants"
	"github.com/koscakluka/receptionist/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Fallback utterances spoken when the normal pipeline cannot produce a
// response. The call keeps going; transient provider failures must never
// hang up on a caller.
const (
	clarificationPrompt = "I'm sorry, I didn't catch that. Could you please repeat your question?"
	unavailableApology  = "I'm sorry, I'm having trouble right now. Could you please say that again?"
	transferHoldLine    = "Please hold while I transfer you to our team."
	genericGreeting     = "Hello! Thank you for calling. Unfortunately we are unable to take your call right now. Please try again later."
	greetingPrompt      = "Generate a brief professional greeting for someone calling %s, a %s business. Respond with the greeting only."
)

// AudioPlayer is an optional call-controller capability for playing
// synthesized audio directly. Controllers without it fall back to the
// provider's own speak action.
type AudioPlayer interface {
	PlayAudio(ctx context.Context, callID string, audio []byte) error
}

// Router is the top-level call state machine. It consumes canonical
// telephony events, drives control-plane actions, and owns session
// lifecycle. Events for the same call identifier are processed strictly in
// arrival order; events for different calls run concurrently.
type Router struct {
	store       sessions.Store
	engine      *Engine
	control     telephony.CallController
	synthesizer texttospeech.Synthesizer
	resolver    tenants.Resolver
	generator   llms.Generator

	generateGreetings bool
	controlTimeout    time.Duration

	locksMu sync.Mutex
	locks   map[string]*callLock
}

type callLock struct {
	mu   sync.Mutex
	refs int
}

type RouterOption func(*Router)

// WithSynthesizer wires a speech synthesizer; without one, replies go out
// through the provider's speak action only.
func WithSynthesizer(synthesizer texttospeech.Synthesizer) RouterOption {
	return func(r *Router) { r.synthesizer = synthesizer }
}

// WithGeneratedGreetings produces the greeting through the generator
// instead of speaking the stored template, falling back to the template
// when generation fails.
func WithGeneratedGreetings(generator llms.Generator) RouterOption {
	return func(r *Router) {
		r.generateGreetings = true
		r.generator = generator
	}
}

// WithControlTimeout bounds every control-plane action.
func WithControlTimeout(timeout time.Duration) RouterOption {
	return func(r *Router) { r.controlTimeout = timeout }
}

func NewRouter(store sessions.Store, engine *Engine, control telephony.CallController, resolver tenants.Resolver, opts ...RouterOption) *Router {
	router := &Router{
		store:          store,
		engine:         engine,
		control:        control,
		resolver:       resolver,
		controlTimeout: 5 * time.Second,
		locks:          make(map[string]*callLock),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// HandleEvent processes one inbound event. The returned error is for
// logging only: callers acknowledge the webhook regardless, and every
// internal failure has already been converted into a safe spoken fallback
// where the call allows one.
func (r *Router) HandleEvent(ctx context.Context, event telephony.Event) error {
	ctx, span := tracer.Start(ctx, "handle call event")
	span.SetAttributes(
		attribute.String("call_id", event.CallID),
		attribute.String("event_kind", string(event.Kind)),
	)
	defer span.End()

	// Webhook delivery is not guaranteed ordered; serialize per call so a
	// late answer event can never overtake speech processing.
	unlock := r.lockCall(event.CallID)
	defer unlock()

	var err error
	switch event.Kind {
	case telephony.EventCallInitiated:
		err = r.handleCallInitiated(ctx, event)
	case telephony.EventCallAnswered:
		err = r.handleCallAnswered(ctx, event)
	case telephony.EventSpeechCaptured:
		err = r.handleSpeechCaptured(ctx, event)
	case telephony.EventCallCompleted:
		err = r.handleCallCompleted(ctx, event)
	default:
		// Providers emit plenty of events the call flow does not care
		// about; acknowledge them without touching any state.
		logger.Debug("ignoring event", "call_id", event.CallID, "event_type", event.RawType)
		return nil
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("event handling failed",
			"call_id", event.CallID, "event_kind", string(event.Kind), "error", err)
	}
	return err
}

func (r *Router) handleCallInitiated(ctx context.Context, event telephony.Event) error {
	tenant, err := r.resolveTenant(ctx, event.To)
	if err != nil {
		if !errors.Is(err, tenants.ErrNotFound) {
			logger.Error("tenant resolution failed", "call_id", event.CallID, "error", err)
		}
		// Answer anyway so the caller hears the generic fallback instead of
		// endless ringing; without a tenant the call ends after greeting.
		return r.controlAction(ctx, func(ctx context.Context) error {
			return r.control.Answer(ctx, event.CallID)
		})
	}

	if _, err := r.store.Create(ctx, event.CallID, *tenant); err != nil &&
		!errors.Is(err, sessions.ErrAlreadyExists) {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return r.controlAction(ctx, func(ctx context.Context) error {
		return r.control.Answer(ctx, event.CallID)
	})
}

func (r *Router) handleCallAnswered(ctx context.Context, event telephony.Event) error {
	session, err := r.store.Get(ctx, event.CallID)
	if errors.Is(err, sessions.ErrNotFound) {
		// No tenant context to drive a dialog with; say so and end the call.
		if speakErr := r.deliver(ctx, event.CallID, genericGreeting, "en"); speakErr != nil {
			return speakErr
		}
		return r.controlAction(ctx, func(ctx context.Context) error {
			return r.control.Hangup(ctx, event.CallID)
		})
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	greeting := r.greeting(ctx, session)
	if err := r.deliver(ctx, event.CallID, greeting, session.Language); err != nil {
		return err
	}
	return r.record(ctx, event.CallID)
}

func (r *Router) handleSpeechCaptured(ctx context.Context, event telephony.Event) error {
	outcome, err := r.engine.Respond(ctx, event.CallID, event.RecordingURL)
	if errors.Is(err, errCallTornDown) {
		// The call ended while the cycle was running; nothing may be spoken
		// on it anymore.
		logger.Info("session removed mid-cycle, dropping actions", "call_id", event.CallID)
		return nil
	}
	if errors.Is(err, sessions.ErrNotFound) {
		// A speech event must never create a session as a side effect;
		// apologize and listen again.
		logger.Warn("speech captured for unknown session", "call_id", event.CallID)
		if speakErr := r.deliver(ctx, event.CallID, clarificationPrompt, "en"); speakErr != nil {
			return speakErr
		}
		return r.record(ctx, event.CallID)
	}
	if err != nil {
		return fmt.Errorf("conversation cycle failed: %w", err)
	}

	// The call may have been torn down while the cycle was in flight; in
	// that case no further control actions may be issued.
	if !r.sessionAlive(ctx, event.CallID) {
		logger.Info("session gone after processing, dropping actions", "call_id", event.CallID)
		return nil
	}

	switch outcome.Kind {
	case OutcomeContinue:
		if err := r.deliver(ctx, event.CallID, outcome.Reply, outcome.Language); err != nil {
			return err
		}
		return r.record(ctx, event.CallID)

	case OutcomeTransfer:
		if err := r.store.SetStatus(ctx, event.CallID, sessions.StatusTransferring); err != nil &&
			!errors.Is(err, sessions.ErrNotFound) {
			return fmt.Errorf("failed to mark session transferring: %w", err)
		}
		if err := r.deliver(ctx, event.CallID, outcome.Reply, outcome.Language); err != nil {
			return err
		}
		if err := r.deliver(ctx, event.CallID, transferHoldLine, outcome.Language); err != nil {
			return err
		}
		if !r.sessionAlive(ctx, event.CallID) {
			return nil
		}
		return r.controlAction(ctx, func(ctx context.Context) error {
			return r.control.Transfer(ctx, event.CallID, outcome.TransferTarget)
		})

	case OutcomeClarificationNeeded:
		if err := r.deliver(ctx, event.CallID, clarificationPrompt, outcome.Language); err != nil {
			return err
		}
		return r.record(ctx, event.CallID)

	case OutcomeEngineUnavailable:
		if err := r.deliver(ctx, event.CallID, unavailableApology, outcome.Language); err != nil {
			return err
		}
		return r.record(ctx, event.CallID)

	default:
		return fmt.Errorf("unknown engine outcome %q", outcome.Kind)
	}
}

func (r *Router) handleCallCompleted(ctx context.Context, event telephony.Event) error {
	if err := r.store.Remove(ctx, event.CallID); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	logger.Info("call completed", "call_id", event.CallID)
	return nil
}

// deliver speaks an utterance to the caller, preferring synthesized audio
// when both a synthesizer and a playback-capable controller are wired, and
// always falling back to the provider's speak action.
func (r *Router) deliver(ctx context.Context, callID, text, language string) error {
	if !r.sessionSafeToSpeak(ctx, callID) {
		return nil
	}

	if r.synthesizer != nil {
		if player, ok := r.control.(AudioPlayer); ok {
			audio, err := r.synthesizer.Synthesize(ctx, text,
				texttospeech.WithLanguage(language))
			if err == nil {
				return r.controlAction(ctx, func(ctx context.Context) error {
					return player.PlayAudio(ctx, callID, audio)
				})
			}
			logger.Warn("synthesis failed, falling back to provider speech",
				"call_id", callID, "error", err)
		}
	}

	return r.controlAction(ctx, func(ctx context.Context) error {
		return r.control.Speak(ctx, callID, text, telephony.WithLanguage(speakLanguage(language)))
	})
}

func (r *Router) record(ctx context.Context, callID string) error {
	return r.controlAction(ctx, func(ctx context.Context) error {
		return r.control.StartRecording(ctx, callID)
	})
}

// greeting returns the utterance spoken right after the call is answered:
// the tenant's stored template, or a generated variant when configured.
func (r *Router) greeting(ctx context.Context, session *sessions.Session) string {
	template := session.Tenant.Greeting
	if template == "" {
		template = fmt.Sprintf("Thank you for calling %s. How may I help you today?", session.Tenant.Name)
	}

	if !r.generateGreetings || r.generator == nil {
		return template
	}

	generated, err := r.generator.Generate(ctx, []llms.Message{
		llms.SystemMessage(systemPrompt(session.Tenant, session.Language)),
		llms.UserMessage(fmt.Sprintf(greetingPrompt, session.Tenant.Name, session.Tenant.BusinessType)),
	})
	if err != nil || generated == "" {
		logger.Warn("greeting generation failed, using template",
			"call_id", session.CallID, "error", err)
		return template
	}
	return generated
}

func (r *Router) resolveTenant(ctx context.Context, calledNumber string) (*tenants.Context, error) {
	ctx, cancel := context.WithTimeout(ctx, r.controlTimeout)
	defer cancel()
	return r.resolver.Resolve(ctx, calledNumber)
}

func (r *Router) controlAction(ctx context.Context, action func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.controlTimeout)
	defer cancel()
	return action(ctx)
}

// sessionAlive reports whether a session still exists; control actions after
// teardown must not be issued.
func (r *Router) sessionAlive(ctx context.Context, callID string) bool {
	_, err := r.store.Get(ctx, callID)
	return err == nil
}

// sessionSafeToSpeak allows speaking on calls that never had a session (the
// tenant-missing and unknown-session recovery paths) while still blocking
// speech on calls that were explicitly torn down.
func (r *Router) sessionSafeToSpeak(ctx context.Context, callID string) bool {
	session, err := r.store.Get(ctx, callID)
	if errors.Is(err, sessions.ErrNotFound) {
		return true
	}
	return err == nil && session.Status != sessions.StatusEnded
}

func (r *Router) lockCall(callID string) func() {
	r.locksMu.Lock()
	lock, ok := r.locks[callID]
	if !ok {
		lock = &callLock{}
		r.locks[callID] = lock
	}
	lock.refs++
	r.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		r.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(r.locks, callID)
		}
		r.locksMu.Unlock()
	}
}

// speakLanguage widens a bare language code into the locale tag control
// planes expect.
func speakLanguage(language string) string {
	switch language {
	case "es":
		return "es-ES"
	case "zh":
		return "zh-CN"
	case "vi":
		return "vi-VN"
	case "ko":
		return "ko-KR"
	default:
		return "en-US"
	}
}
