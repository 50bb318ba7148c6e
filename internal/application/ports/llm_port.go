package ports

import (
	"context"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
)

// ReplyClassifier define el puerto de salida para clasificar respuestas de deudores con un LLM.
// Cualquier adaptador (Anthropic, reglas locales, mock) debe implementar esta interfaz.
// El contexto debe llevar un timeout para evitar bloqueos en llamadas externas.
type ReplyClassifier interface {
	ClassifyReply(ctx context.Context, in dto.ReplyClassificationInput) (*dto.ReplyClassificationDTO, error)
}
