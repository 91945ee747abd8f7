package conversation

import (
	"strings"

	"github.com/wolfman30/lysandra-ai-platform/internal/settings"
)

const knowledgeDirective = `IMPORTANTE: Tienes acceso a una base de conocimiento sobre CoreAura. Cuando el usuario pregunte sobre:
- Servicios de la empresa
- Precios
- Información de contacto
- Tecnologías que usamos
- Proyectos realizados
- Información fiscal
- Cualquier dato sobre CoreAura

Debes usar la función 'searchKnowledgeBase' para obtener información precisa y actualizada.

Siempre responde en español de manera profesional y amigable.`

// EnhancedPrompt appends the knowledge-base directive used by the test console.
func EnhancedPrompt(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = settings.DefaultSystemPrompt
	}
	return base + "\n\n" + knowledgeDirective
}

// coerceRole maps stored roles onto the model's user/assistant vocabulary.
func coerceRole(role string) string {
	if role == ChatRoleUser {
		return ChatRoleUser
	}
	return ChatRoleAssistant
}
