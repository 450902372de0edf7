package callflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/sessions"
	"github.com/koscakluka/receptionist/core/speechtotext"
)

func newTestStore(t *testing.T) sessions.Store {
	t.Helper()
	store, err := sessions.NewStore(sessions.StoreTypeMemory)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEngineAppendsTurnPairsInOrder(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(context.Background(), "call-1", *testTenant()); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	cycle := 0
	engine := NewEngine(store,
		&transcriberStub{transcribe: func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error) {
			cycle++
			return &speechtotext.Transcription{
				Transcript: fmt.Sprintf("question %d", cycle),
				Language:   "en",
				Confidence: 0.95,
			}, nil
		}},
		&generatorStub{generate: func([]llms.Message) (string, error) {
			return fmt.Sprintf("answer %d", cycle), nil
		}},
	)

	const cycles = 3
	for i := 0; i < cycles; i++ {
		outcome, err := engine.Respond(context.Background(), "call-1", "https://recordings/x.mp3")
		if err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
		if outcome.Kind != OutcomeContinue {
			t.Fatalf("cycle %d: expected continue outcome, got %q", i, outcome.Kind)
		}
	}

	session, err := store.Get(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if len(session.Turns) != 2*cycles {
		t.Fatalf("expected %d turns, got %d", 2*cycles, len(session.Turns))
	}
	for i, turn := range session.Turns {
		wantRole := sessions.TurnRoleUser
		if i%2 == 1 {
			wantRole = sessions.TurnRoleAssistant
		}
		if turn.Role != wantRole {
			t.Fatalf("turn %d: expected role %q, got %q", i, wantRole, turn.Role)
		}
		if i > 0 && session.Turns[i].Timestamp.Before(session.Turns[i-1].Timestamp) {
			t.Fatalf("turn %d is out of chronological order", i)
		}
	}
}

func TestEngineTransfersOnMarkerInReply(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(context.Background(), "call-1", *testTenant()); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	engine := NewEngine(store,
		&transcriberStub{},
		&generatorStub{generate: func([]llms.Message) (string, error) {
			return "Let me transfer to a representative.", nil
		}},
	)

	outcome, err := engine.Respond(context.Background(), "call-1", "https://recordings/x.mp3")
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if outcome.Kind != OutcomeTransfer {
		t.Fatalf("expected transfer outcome, got %q", outcome.Kind)
	}
	if outcome.TransferTarget != "+15551234567" {
		t.Fatalf("expected tenant transfer number, got %q", outcome.TransferTarget)
	}

	// Both turns are still recorded on a transfer.
	session, _ := store.Get(context.Background(), "call-1")
	if len(session.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(session.Turns))
	}
}

func TestEngineAsksForClarificationWithoutAppendingTurns(t *testing.T) {
	cases := []struct {
		name       string
		transcribe func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error)
	}{
		{
			name: "provider failure",
			transcribe: func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error) {
				return nil, errProviderDown
			},
		},
		{
			name: "empty transcript",
			transcribe: func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error) {
				return &speechtotext.Transcription{Transcript: "  ", Language: "en", Confidence: 0.9}, nil
			},
		},
		{
			name: "low confidence",
			transcribe: func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error) {
				return &speechtotext.Transcription{Transcript: "mumble", Language: "en", Confidence: 0.1}, nil
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(t)
			if _, err := store.Create(context.Background(), "call-1", *testTenant()); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}

			engine := NewEngine(store, &transcriberStub{transcribe: tc.transcribe}, &generatorStub{})

			outcome, err := engine.Respond(context.Background(), "call-1", "https://recordings/x.mp3")
			if err != nil {
				t.Fatalf("expected recoverable outcome, got error: %v", err)
			}
			if outcome.Kind != OutcomeClarificationNeeded {
				t.Fatalf("expected clarification outcome, got %q", outcome.Kind)
			}

			session, _ := store.Get(context.Background(), "call-1")
			if len(session.Turns) != 0 {
				t.Fatalf("expected no turns appended, got %d", len(session.Turns))
			}
		})
	}
}

func TestEngineStaysUpWhenGenerationFails(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(context.Background(), "call-1", *testTenant()); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	engine := NewEngine(store,
		&transcriberStub{},
		&generatorStub{generate: func([]llms.Message) (string, error) {
			return "", errProviderDown
		}},
	)

	outcome, err := engine.Respond(context.Background(), "call-1", "https://recordings/x.mp3")
	if err != nil {
		t.Fatalf("expected recoverable outcome, got error: %v", err)
	}
	if outcome.Kind != OutcomeEngineUnavailable {
		t.Fatalf("expected engine-unavailable outcome, got %q", outcome.Kind)
	}

	// The user turn stays; only the assistant turn is missing.
	session, _ := store.Get(context.Background(), "call-1")
	if len(session.Turns) != 1 || session.Turns[0].Role != sessions.TurnRoleUser {
		t.Fatalf("expected only the user turn, got %d turns", len(session.Turns))
	}
	if session.Status != sessions.StatusActive {
		t.Fatalf("expected session to stay active, got %q", session.Status)
	}
}

func TestEngineFollowsLanguageDrift(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(context.Background(), "call-1", *testTenant()); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	engine := NewEngine(store,
		&transcriberStub{transcribe: func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error) {
			return &speechtotext.Transcription{Transcript: "necesito una nevera", Language: "es-ES", Confidence: 0.9}, nil
		}},
		&generatorStub{},
	)

	outcome, err := engine.Respond(context.Background(), "call-1", "https://recordings/x.mp3")
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if outcome.Language != "es" {
		t.Fatalf("expected outcome language es, got %q", outcome.Language)
	}

	session, _ := store.Get(context.Background(), "call-1")
	if session.Language != "es" {
		t.Fatalf("expected session language to drift to es, got %q", session.Language)
	}
}

func TestEngineIgnoresUnsupportedLanguageDrift(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Create(context.Background(), "call-1", *testTenant()); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	engine := NewEngine(store,
		&transcriberStub{transcribe: func(string, speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error) {
			return &speechtotext.Transcription{Transcript: "bonjour", Language: "fr", Confidence: 0.9}, nil
		}},
		&generatorStub{},
		WithSupportedLanguages("en", "es"),
	)

	if _, err := engine.Respond(context.Background(), "call-1", "https://recordings/x.mp3"); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	session, _ := store.Get(context.Background(), "call-1")
	if session.Language != "en" {
		t.Fatalf("expected session language to stay en, got %q", session.Language)
	}
}

func TestEngineReportsMissingSession(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, &transcriberStub{}, &generatorStub{})

	_, err := engine.Respond(context.Background(), "missing", "https://recordings/x.mp3")
	if !errors.Is(err, sessions.ErrNotFound) {
		t.Fatalf("expected sessions.ErrNotFound, got %v", err)
	}
}
