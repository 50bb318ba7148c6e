package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// ActionType tipo de acción registrada por el agente.
type ActionType string

const (
	ActionSendMessage      ActionType = "SEND_MESSAGE"
	ActionScheduleFollowUp ActionType = "SCHEDULE_FOLLOW_UP"
	ActionUpdateStatus     ActionType = "UPDATE_STATUS"
	ActionEscalate         ActionType = "ESCALATE"
	ActionCloseCase        ActionType = "CLOSE_CASE"
	ActionClassifyResponse ActionType = "CLASSIFY_RESPONSE"
	ActionLogNote          ActionType = "LOG_NOTE"
)

// IsValid indica si el tipo es conocido.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionSendMessage, ActionScheduleFollowUp, ActionUpdateStatus, ActionEscalate,
		ActionCloseCase, ActionClassifyResponse, ActionLogNote:
		return true
	}
	return false
}

// ActionStatus estado de una acción dentro de la ejecución.
type ActionStatus string

const (
	ActionPending    ActionStatus = "PENDING"
	ActionInProgress ActionStatus = "IN_PROGRESS"
	ActionSucceeded  ActionStatus = "SUCCEEDED"
	ActionFailed     ActionStatus = "FAILED"
)

// ActionPayload detalle tipado de una acción; cada tipo de acción tiene su estructura.
type ActionPayload interface {
	ActionType() ActionType
}

type SendMessagePayload struct {
	CommunicationAttemptID string  `json:"communication_attempt_id"`
	ContactID              string  `json:"contact_id,omitempty"`
	Channel                Channel `json:"channel"`
}

type ScheduleFollowUpPayload struct {
	FollowUpAt time.Time `json:"follow_up_at"`
	Reason     string    `json:"reason,omitempty"`
}

type UpdateStatusPayload struct {
	FromStage  CaseStage  `json:"from_stage,omitempty"`
	ToStage    CaseStage  `json:"to_stage,omitempty"`
	FromStatus CaseStatus `json:"from_status,omitempty"`
	ToStatus   CaseStatus `json:"to_status,omitempty"`
}

type EscalatePayload struct {
	Reason            string  `json:"reason"`
	EscalationChannel Channel `json:"escalation_channel,omitempty"`
	EscalationContact string  `json:"escalation_contact,omitempty"`
}

type CloseCasePayload struct {
	Reason string `json:"reason"`
}

type ClassifyResponsePayload struct {
	CommunicationAttemptID string      `json:"communication_attempt_id"`
	Intent                 ReplyIntent `json:"intent"`
	Confidence             float64     `json:"confidence"`
	PromiseDate            *time.Time  `json:"promise_date,omitempty"`
}

type LogNotePayload struct {
	Note string `json:"note"`
}

func (SendMessagePayload) ActionType() ActionType      { return ActionSendMessage }
func (ScheduleFollowUpPayload) ActionType() ActionType { return ActionScheduleFollowUp }
func (UpdateStatusPayload) ActionType() ActionType     { return ActionUpdateStatus }
func (EscalatePayload) ActionType() ActionType         { return ActionEscalate }
func (CloseCasePayload) ActionType() ActionType        { return ActionCloseCase }
func (ClassifyResponsePayload) ActionType() ActionType { return ActionClassifyResponse }
func (LogNotePayload) ActionType() ActionType          { return ActionLogNote }

// ReplyIntent intención detectada en una respuesta entrante.
type ReplyIntent string

const (
	IntentPromiseToPay ReplyIntent = "PROMISE_TO_PAY"
	IntentAlreadyPaid  ReplyIntent = "ALREADY_PAID"
	IntentDispute      ReplyIntent = "DISPUTE"
	IntentRequestInfo  ReplyIntent = "REQUEST_INFO"
	IntentOptOut       ReplyIntent = "OPT_OUT"
	IntentOther        ReplyIntent = "OTHER"
)

// AgentActionLog entrada del registro de acciones de una ejecución (append-only).
// Sequence refleja el orden de creación y nunca se reescribe.
type AgentActionLog struct {
	ID               string        `json:"id"`
	OrganizationID   string        `json:"organization_id"`
	AgentRunID       string        `json:"agent_run_id"`
	CollectionCaseID string        `json:"collection_case_id"`
	Sequence         int           `json:"sequence"`
	Type             ActionType    `json:"type"`
	Status           ActionStatus  `json:"status"`
	Summary          string        `json:"summary,omitempty"`
	Payload          ActionPayload `json:"payload,omitempty"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ValidateActionPayload verifica que el payload corresponda al tipo de acción.
func ValidateActionPayload(t ActionType, p ActionPayload) error {
	if !t.IsValid() {
		return domain.Invalid(domain.ErrAgentActionInvalidType, "%q", t)
	}
	if p != nil && p.ActionType() != t {
		return domain.Invalid(domain.ErrAgentActionInvalidType, "payload %s para acción %s", p.ActionType(), t)
	}
	return nil
}

// EncodeActionPayload serializa el payload para persistencia.
func EncodeActionPayload(p ActionPayload) (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// DecodeActionPayload reconstruye el payload tipado a partir del tipo de acción.
func DecodeActionPayload(t ActionType, raw json.RawMessage) (ActionPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var (
		p   ActionPayload
		err error
	)
	switch t {
	case ActionSendMessage:
		p, err = decodeInto[SendMessagePayload](raw)
	case ActionScheduleFollowUp:
		p, err = decodeInto[ScheduleFollowUpPayload](raw)
	case ActionUpdateStatus:
		p, err = decodeInto[UpdateStatusPayload](raw)
	case ActionEscalate:
		p, err = decodeInto[EscalatePayload](raw)
	case ActionCloseCase:
		p, err = decodeInto[CloseCasePayload](raw)
	case ActionClassifyResponse:
		p, err = decodeInto[ClassifyResponsePayload](raw)
	case ActionLogNote:
		p, err = decodeInto[LogNotePayload](raw)
	default:
		return nil, domain.Invalid(domain.ErrAgentActionInvalidType, "%q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode payload %s: %w", t, err)
	}
	return p, nil
}

func decodeInto[T ActionPayload](raw json.RawMessage) (ActionPayload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
