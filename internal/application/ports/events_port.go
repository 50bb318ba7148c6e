package ports

import (
	"context"
	"time"
)

// Tipos de evento de dominio publicados tras confirmar cada transacción.
const (
	EventInvoiceCreated        = "invoice.created"
	EventInvoiceStatusChanged  = "invoice.status_changed"
	EventPaymentRecorded       = "payment.recorded"
	EventCaseOpened            = "collection_case.opened"
	EventCaseStageChanged      = "collection_case.stage_changed"
	EventCaseClosed            = "collection_case.closed"
	EventCaseEscalationDue     = "collection_case.escalation_due"
	EventCommunicationSent     = "communication.sent"
	EventCommunicationFailed   = "communication.failed"
	EventCommunicationReceived = "communication.reply_received"
	EventAgentRunStarted       = "agent_run.started"
	EventAgentRunFinished      = "agent_run.finished"
)

// DomainEvent hecho ocurrido en el núcleo de cobranza.
type DomainEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	AggregateID    string    `json:"aggregate_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	Data           any       `json:"data,omitempty"`
}

// EventPublisher publica eventos de dominio. La publicación es best-effort: un fallo se registra
// en el log y no revierte la operación que ya se confirmó.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
