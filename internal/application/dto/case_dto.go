package dto

import (
	"encoding/json"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// OpenCaseRequest body para POST /api/v1/cases.
type OpenCaseRequest struct {
	InvoiceID        string `json:"invoice_id" validate:"required"`
	PrimaryContactID string `json:"primary_contact_id,omitempty"`
	RiskLevel        string `json:"risk_level,omitempty" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Summary          string `json:"summary,omitempty" validate:"max=4000"`
}

// TransitionStageRequest body para POST /api/v1/cases/:id/stage.
type TransitionStageRequest struct {
	Stage string `json:"stage" validate:"required"`
	Note  string `json:"note,omitempty" validate:"max=2000"`
}

// CasesDueRequest query de GET /api/v1/cases/due.
type CasesDueRequest struct {
	Limit int `query:"limit" validate:"min=0,max=500"`
}

// CaseDetailResponse caso con su historial de comunicaciones.
type CaseDetailResponse struct {
	Case           *entity.CollectionCase         `json:"collection_case"`
	Invoice        *entity.Invoice                `json:"invoice,omitempty"`
	Communications []*entity.CommunicationAttempt `json:"communications"`
	AllowedStages  []entity.CaseStage             `json:"allowed_stages"`
}

// SendCommunicationRequest body para POST /api/v1/cases/:id/communications.
type SendCommunicationRequest struct {
	CollectionCaseID string `json:"-"`
	ContactID        string `json:"contact_id" validate:"required"`
	Channel          string `json:"channel" validate:"required,oneof=EMAIL WHATSAPP SMS"`
	Subject          string `json:"subject,omitempty" validate:"max=300"`
	Body             string `json:"body" validate:"required,max=10000"`
	AttachStatement  bool   `json:"attach_statement"`
	AgentRunID       string `json:"agent_run_id,omitempty"`
}

// DeliveryReceiptRequest webhook de estado de entrega del proveedor.
type DeliveryReceiptRequest struct {
	ExternalID string         `json:"external_id" validate:"required"`
	Status     string         `json:"status" validate:"required,oneof=SENT DELIVERED READ FAILED"`
	OccurredAt *time.Time     `json:"occurred_at,omitempty"`
	Error      string         `json:"error,omitempty" validate:"max=2000"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// InboundReplyRequest respuesta del deudor recibida por algún canal.
type InboundReplyRequest struct {
	CollectionCaseID string     `json:"-"`
	ContactID        string     `json:"contact_id,omitempty"`
	Channel          string     `json:"channel" validate:"required,oneof=EMAIL WHATSAPP SMS PHONE OTHER"`
	Subject          string     `json:"subject,omitempty" validate:"max=300"`
	Body             string     `json:"body" validate:"required,max=20000"`
	ExternalID       string     `json:"external_id,omitempty"`
	ReceivedAt       *time.Time `json:"received_at,omitempty"`
	AgentRunID       string     `json:"agent_run_id,omitempty"`
}

// InboundReplyResponse intento registrado y efectos de la clasificación.
type InboundReplyResponse struct {
	Attempt        *entity.CommunicationAttempt `json:"attempt"`
	Classification *ReplyClassificationDTO      `json:"classification,omitempty"`
	Case           *entity.CollectionCase       `json:"collection_case"`
}

// StartAgentRunRequest body para POST /api/v1/cases/:id/agent-runs.
type StartAgentRunRequest struct {
	CollectionCaseID string          `json:"-"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// RecordAgentActionRequest body para POST /api/v1/agent-runs/:id/actions.
type RecordAgentActionRequest struct {
	Type    string          `json:"type" validate:"required"`
	Status  string          `json:"status,omitempty" validate:"omitempty,oneof=PENDING IN_PROGRESS SUCCEEDED FAILED"`
	Summary string          `json:"summary,omitempty" validate:"max=2000"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UpdateAgentActionStatusRequest body para PATCH /api/v1/agent-actions/:id/status.
type UpdateAgentActionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=IN_PROGRESS SUCCEEDED FAILED"`
	Error  string `json:"error,omitempty" validate:"max=2000"`
}

// FinalizeAgentRunRequest body para POST /api/v1/agent-runs/:id/finalize.
type FinalizeAgentRunRequest struct {
	Status string `json:"status" validate:"required,oneof=COMPLETED FAILED CANCELLED"`
	Error  string `json:"error,omitempty" validate:"max=2000"`
}

// AgentRunTimelineResponse ejecución con sus acciones en orden de secuencia.
type AgentRunTimelineResponse struct {
	Run     *entity.AgentRun         `json:"run"`
	Actions []*entity.AgentActionLog `json:"actions"`
}
