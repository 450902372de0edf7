package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	callflow "github.com/koscakluka/receptionist/core"
	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/sessions"
	"github.com/koscakluka/receptionist/core/speechtotext"
	"github.com/koscakluka/receptionist/core/telephony"
	"github.com/koscakluka/receptionist/core/tenants"
)

type transcriberStub struct{}

func (transcriberStub) Transcribe(ctx context.Context, audioURL string, opts ...speechtotext.TranscriptionOption) (*speechtotext.Transcription, error) {
	return &speechtotext.Transcription{Transcript: "hello", Language: "en", Confidence: 0.9}, nil
}

type generatorStub struct{}

func (generatorStub) Generate(ctx context.Context, messages []llms.Message, opts ...llms.GenerateOption) (string, error) {
	return "happy to help", nil
}

type controllerStub struct{ actions []string }

func (c *controllerStub) Answer(ctx context.Context, callID string) error {
	c.actions = append(c.actions, "answer")
	return nil
}
func (c *controllerStub) Speak(ctx context.Context, callID string, text string, opts ...telephony.SpeakOption) error {
	c.actions = append(c.actions, "speak")
	return nil
}
func (c *controllerStub) StartRecording(ctx context.Context, callID string) error {
	c.actions = append(c.actions, "record")
	return nil
}
func (c *controllerStub) Transfer(ctx context.Context, callID string, to string) error {
	c.actions = append(c.actions, "transfer")
	return nil
}
func (c *controllerStub) Hangup(ctx context.Context, callID string) error {
	c.actions = append(c.actions, "hangup")
	return nil
}

type resolverStub struct{}

func (resolverStub) Resolve(ctx context.Context, phoneNumber string) (*tenants.Context, error) {
	return &tenants.Context{
		OrganizationID: "org-1",
		Name:           "Test Organization",
		Greeting:       "Hello, how may I help?",
		TransferNumber: "+15551234567",
		Language:       "en",
	}, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	store, err := sessions.NewStore(sessions.StoreTypeMemory)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	engine := callflow.NewEngine(store, transcriberStub{}, generatorStub{})
	router := callflow.NewRouter(store, engine, &controllerStub{}, resolverStub{})
	return &Handler{Router: router}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	recorder := httptest.NewRecorder()
	handler.Health(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["message"] == "" {
		t.Fatalf("expected a liveness message, got %v", body)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"valid event", `{"event_type": "call.initiated", "payload": {"call_control_id": "v3:abc", "to": "+15550001111"}}`},
		{"unknown event type", `{"event_type": "call.cost_updated", "payload": {"call_control_id": "v3:abc"}}`},
		{"missing call id", `{"event_type": "call.answered", "payload": {}}`},
		{"garbage body", `this is not json`},
		{"empty body", ``},
	}

	handler := newTestHandler(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/voice",
				bytes.NewBufferString(tc.body))
			recorder := httptest.NewRecorder()

			handler.Webhook(recorder, req)

			if recorder.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", recorder.Code)
			}
			if got := recorder.Header().Get("Content-Type"); !strings.Contains(got, "application/json") {
				t.Fatalf("expected a JSON response, got %q", got)
			}
		})
	}
}

func TestWebhookIgnoresNonPostMethods(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/telnyx/voice", nil)
	recorder := httptest.NewRecorder()
	handler.Webhook(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}

func TestRouterServesWebhookPath(t *testing.T) {
	handler := newTestHandler(t)
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/webhooks/telnyx/voice", "application/json",
		bytes.NewBufferString(`{"event_type": "call.cost_updated", "payload": {"call_control_id": "v3:abc"}}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
