package collections

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// SendResult marcas de tiempo devueltas por el proveedor al enviar.
type SendResult struct {
	SentAt      time.Time
	DeliveredAt *time.Time
}

// MarkCommunicationPending marca el intento como PENDING justo antes de entregarlo al proveedor.
// Solo aplica a intentos DRAFT.
func MarkCommunicationPending(a entity.CommunicationAttempt, now time.Time) (entity.CommunicationAttempt, error) {
	switch a.Status {
	case entity.CommunicationStatusPending:
		return a, nil
	case entity.CommunicationStatusDraft:
		a.Status = entity.CommunicationStatusPending
		a.UpdatedAt = now
		return a, nil
	}
	return a, domain.Invalid(domain.ErrCommunicationInvalidStatus, "%s -> %s", a.Status, entity.CommunicationStatusPending)
}

// MarkCommunicationAsSent registra el envío: DELIVERED si hay deliveredAt, si no SENT.
// Un intento FAILED nunca pasa a SENT/DELIVERED y uno DELIVERED no retrocede.
func MarkCommunicationAsSent(a entity.CommunicationAttempt, r SendResult) (entity.CommunicationAttempt, error) {
	if a.Status == entity.CommunicationStatusFailed {
		return a, domain.Invalid(domain.ErrCommunicationInvalidStatus, "%s -> %s", a.Status, entity.CommunicationStatusSent)
	}
	sentAt := r.SentAt
	if a.SentAt == nil {
		a.SentAt = &sentAt
	}
	switch {
	case r.DeliveredAt != nil:
		d := *r.DeliveredAt
		a.DeliveredAt = &d
		if a.Status != entity.CommunicationStatusAcknowledged {
			a.Status = entity.CommunicationStatusDelivered
		}
	case a.Status == entity.CommunicationStatusDelivered || a.Status == entity.CommunicationStatusAcknowledged:
		// ya entregado: no retrocede
	default:
		a.Status = entity.CommunicationStatusSent
	}
	a.UpdatedAt = sentAt
	return a, nil
}

// MarkCommunicationAsFailed registra un fallo de transporte. Intentos ya entregados no fallan.
func MarkCommunicationAsFailed(a entity.CommunicationAttempt, reason string, now time.Time) (entity.CommunicationAttempt, error) {
	switch a.Status {
	case entity.CommunicationStatusDelivered, entity.CommunicationStatusAcknowledged:
		return a, domain.Invalid(domain.ErrCommunicationInvalidStatus, "%s -> %s", a.Status, entity.CommunicationStatusFailed)
	}
	a.Status = entity.CommunicationStatusFailed
	a.Error = strings.TrimSpace(reason)
	a.UpdatedAt = now
	return a, nil
}

// MarkCommunicationAsRead registra la lectura; implica entrega.
func MarkCommunicationAsRead(a entity.CommunicationAttempt, readAt time.Time) (entity.CommunicationAttempt, error) {
	if a.Status == entity.CommunicationStatusFailed || a.Status == entity.CommunicationStatusDraft {
		return a, domain.Invalid(domain.ErrCommunicationInvalidStatus, "lectura en estado %s", a.Status)
	}
	t := readAt
	a.ReadAt = &t
	if a.DeliveredAt == nil {
		a.DeliveredAt = &t
	}
	if a.Status != entity.CommunicationStatusAcknowledged {
		a.Status = entity.CommunicationStatusDelivered
	}
	a.UpdatedAt = readAt
	return a, nil
}

// AcknowledgeCommunication marca un intento como atendido (respuesta recibida o entrada procesada).
func AcknowledgeCommunication(a entity.CommunicationAttempt, now time.Time) (entity.CommunicationAttempt, error) {
	if a.Status == entity.CommunicationStatusFailed {
		return a, domain.Invalid(domain.ErrCommunicationInvalidStatus, "%s -> %s", a.Status, entity.CommunicationStatusAcknowledged)
	}
	a.Status = entity.CommunicationStatusAcknowledged
	a.UpdatedAt = now
	return a, nil
}

// AppendDeliveryMetadata guarda el id externo del proveedor y mezcla metadatos en el payload.
func AppendDeliveryMetadata(a entity.CommunicationAttempt, externalID string, meta map[string]any, now time.Time) (entity.CommunicationAttempt, error) {
	if externalID != "" {
		a.ExternalID = externalID
	}
	if len(meta) > 0 {
		merged := map[string]any{}
		if len(a.Payload) > 0 {
			if err := json.Unmarshal(a.Payload, &merged); err != nil {
				merged = map[string]any{"original": json.RawMessage(a.Payload)}
			}
		}
		delivery, _ := merged["delivery"].(map[string]any)
		if delivery == nil {
			delivery = map[string]any{}
		}
		for k, v := range meta {
			delivery[k] = v
		}
		merged["delivery"] = delivery
		raw, err := json.Marshal(merged)
		if err != nil {
			return a, domain.Invalid(domain.ErrInvalidInput, "metadatos de entrega: %v", err)
		}
		a.Payload = raw
	}
	a.UpdatedAt = now
	return a, nil
}

// IsDeliveryUnknown un intento que quedó en DRAFT/PENDING más de staleAfter se trata como
// "entrega desconocida" (nunca como entregado).
func IsDeliveryUnknown(a entity.CommunicationAttempt, now time.Time, staleAfter time.Duration) bool {
	if a.Status != entity.CommunicationStatusDraft && a.Status != entity.CommunicationStatusPending {
		return false
	}
	return now.Sub(a.UpdatedAt) >= staleAfter
}

// IsDeliveryFlagged indica si el intento ya lleva la marca delivery.delivery_unknown en su payload.
func IsDeliveryFlagged(a entity.CommunicationAttempt) bool {
	if len(a.Payload) == 0 {
		return false
	}
	var p struct {
		Delivery struct {
			Unknown bool `json:"delivery_unknown"`
		} `json:"delivery"`
	}
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return false
	}
	return p.Delivery.Unknown
}
