package groq

import (
	"testing"

	"github.com/koscakluka/receptionist/core/llms"
)

func TestToMessagesMapsRoles(t *testing.T) {
	converted := toMessages([]llms.Message{
		llms.SystemMessage("be helpful"),
		llms.UserMessage("hello"),
		llms.AssistantMessage("hi there"),
	})

	want := []message{
		{Role: messageRoleSystem, Content: "be helpful"},
		{Role: messageRoleUser, Content: "hello"},
		{Role: messageRoleAssistant, Content: "hi there"},
	}
	if len(converted) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(converted))
	}
	for i := range want {
		if converted[i] != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], converted[i])
		}
	}
}
