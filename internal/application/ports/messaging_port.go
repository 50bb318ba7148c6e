package ports

import (
	"context"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// Attachment archivo adjunto de un mensaje saliente (solo email).
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OutboundMessage mensaje listo para entregar al proveedor del canal.
type OutboundMessage struct {
	AttemptID      string
	OrganizationID string
	Channel        entity.Channel
	To             string
	ToName         string
	Subject        string
	Body           string
	Attachments    []Attachment
}

// SendReceipt confirmación del proveedor. DeliveredAt solo si el proveedor confirma entrega síncrona.
type SendReceipt struct {
	ExternalID  string
	SentAt      time.Time
	DeliveredAt *time.Time
	Metadata    map[string]any
}

// MessageSender transporte saliente de un canal (o un enrutador de canales).
// Un error significa que el mensaje no salió; el caller lo registra en el intento.
type MessageSender interface {
	Send(ctx context.Context, msg OutboundMessage) (*SendReceipt, error)
}
