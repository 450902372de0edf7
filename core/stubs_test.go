package callflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/speechtotext"
	"github.com/koscakluka/receptionist/core/telephony"
	"github.com/koscakluka/receptionist/core/tenants"
)

type transcriberStub struct {
	transcribe func(audioURL string, opts speechtotext.TranscriptionOptions) (*speechtotext.Transcription, error)
}

func (s *transcriberStub) Transcribe(ctx context.Context, audioURL string, opts ...speechtotext.TranscriptionOption) (*speechtotext.Transcription, error) {
	options := speechtotext.TranscriptionOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if s.transcribe == nil {
		return &speechtotext.Transcription{Transcript: "hello", Language: options.Language, Confidence: 0.9}, nil
	}
	return s.transcribe(audioURL, options)
}

type generatorStub struct {
	generate func(messages []llms.Message) (string, error)
}

func (s *generatorStub) Generate(ctx context.Context, messages []llms.Message, opts ...llms.GenerateOption) (string, error) {
	if s.generate == nil {
		return "happy to help", nil
	}
	return s.generate(messages)
}

// controllerStub records every control action in order.
type controllerStub struct {
	mu      sync.Mutex
	actions []string

	fail map[string]error
}

func (s *controllerStub) recordAction(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, action)
	if s.fail != nil {
		return s.fail[action]
	}
	return nil
}

func (s *controllerStub) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, len(s.actions))
	copy(actions, s.actions)
	return actions
}

func (s *controllerStub) Answer(ctx context.Context, callID string) error {
	return s.recordAction("answer")
}

func (s *controllerStub) Speak(ctx context.Context, callID string, text string, opts ...telephony.SpeakOption) error {
	return s.recordAction("speak:" + text)
}

func (s *controllerStub) StartRecording(ctx context.Context, callID string) error {
	return s.recordAction("record")
}

func (s *controllerStub) Transfer(ctx context.Context, callID string, to string) error {
	return s.recordAction("transfer:" + to)
}

func (s *controllerStub) Hangup(ctx context.Context, callID string) error {
	return s.recordAction("hangup")
}

type resolverStub struct {
	tenant *tenants.Context
	err    error
}

func (s *resolverStub) Resolve(ctx context.Context, calledNumber string) (*tenants.Context, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.tenant == nil {
		return nil, tenants.ErrNotFound
	}
	tenant := *s.tenant
	return &tenant, nil
}

func testTenant() *tenants.Context {
	return &tenants.Context{
		OrganizationID: "org-1",
		Name:           "SCA Appliance Liquidations",
		BusinessType:   "appliance_liquidation",
		Persona:        "professional and friendly",
		Greeting:       "Thank you for calling SCA Appliance Liquidations, how may I help you today?",
		TransferNumber: "+15551234567",
		Language:       "en",
	}
}

var errProviderDown = fmt.Errorf("provider down")
