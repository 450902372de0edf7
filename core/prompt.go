package callflow

import (
	"fmt"

	"github.com/koscakluka/receptionist/core/llms"
	"github.com/koscakluka/receptionist/core/sessions"
	"github.com/koscakluka/receptionist/core/tenants"
)

const systemPromptTemplate = `You are an AI secretary for %s, a %s business.

PERSONALITY: %s

LANGUAGE INSTRUCTIONS:
- Primary language: %s
- Always respond in the same language the customer uses
- If the customer switches languages, switch with them

YOUR ROLE:
1. Answer the phone professionally on behalf of %s
2. Help schedule appointments by asking what the caller needs, when works best, and their contact details
3. Answer basic questions about services and hours
4. Offer to transfer to a human for complex issues or when the caller asks

Keep responses concise, helpful, and professional. Always confirm important
details back to the customer.`

// systemPrompt renders the fixed system prompt. It is deterministic given the
// tenant snapshot and language; no per-call state beyond the turn history
// reaches the model any other way.
func systemPrompt(tenant tenants.Context, language string) string {
	persona := tenant.Persona
	if persona == "" {
		persona = "professional, helpful, friendly"
	}
	return fmt.Sprintf(systemPromptTemplate,
		tenant.Name, tenant.BusinessType, persona, language, tenant.Name)
}

// buildMessages converts a session into the role-tagged model input: the
// system prompt followed by the full turn history in order.
func buildMessages(session *sessions.Session) []llms.Message {
	messages := make([]llms.Message, 0, len(session.Turns)+1)
	messages = append(messages, llms.SystemMessage(systemPrompt(session.Tenant, session.Language)))

	for _, turn := range session.Turns {
		switch turn.Role {
		case sessions.TurnRoleUser:
			messages = append(messages, llms.UserMessage(turn.Content))
		case sessions.TurnRoleAssistant:
			messages = append(messages, llms.AssistantMessage(turn.Content))
		case sessions.TurnRoleSystem:
			messages = append(messages, llms.SystemMessage(turn.Content))
		}
	}
	return messages
}
