package callflow

import (
	"strings"
	"testing"

	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/sessions"
)

func TestSystemPromptIsDeterministic(t *testing.T) {
	tenant := *testTenant()

	first := systemPrompt(tenant, "en")
	second := systemPrompt(tenant, "en")
	if first != second {
		t.Fatalf("expected identical prompts for identical inputs")
	}

	if !strings.Contains(first, tenant.Name) {
		t.Errorf("expected prompt to name the organization")
	}
	if !strings.Contains(first, "Primary language: en") {
		t.Errorf("expected prompt to carry the session language")
	}
	if systemPrompt(tenant, "es") == first {
		t.Errorf("expected the language to change the prompt")
	}
}

func TestSystemPromptDefaultsPersona(t *testing.T) {
	tenant := *testTenant()
	tenant.Persona = ""

	if !strings.Contains(systemPrompt(tenant, "en"), "professional, helpful, friendly") {
		t.Fatalf("expected a default personality when the tenant has none")
	}
}

func TestBuildMessagesOrdersHistoryAfterSystemPrompt(t *testing.T) {
	session := &sessions.Session{
		Tenant:   *testTenant(),
		Language: "en",
		Turns: []sessions.Turn{
			{Role: sessions.TurnRoleUser, Content: "do you sell washers"},
			{Role: sessions.TurnRoleAssistant, Content: "we do"},
			{Role: sessions.TurnRoleUser, Content: "what are your hours"},
		},
	}

	messages := buildMessages(session)
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != llms.MessageRoleSystem {
		t.Fatalf("expected the system prompt first, got %q", messages[0].Role)
	}
	wantRoles := []llms.MessageRole{llms.MessageRoleUser, llms.MessageRoleAssistant, llms.MessageRoleUser}
	for i, want := range wantRoles {
		if messages[i+1].Role != want {
			t.Errorf("message %d: expected role %q, got %q", i+1, want, messages[i+1].Role)
		}
	}
	if messages[3].Content != "what are your hours" {
		t.Fatalf("expected history in order, got %q", messages[3].Content)
	}
}
