package entity

import (
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// CaseStage etapa del ciclo de recordatorios/escalamiento.
type CaseStage string

const (
	StageInitial      CaseStage = "INITIAL"
	StageReminder1    CaseStage = "REMINDER_1"
	StageReminder2    CaseStage = "REMINDER_2"
	StageEscalated    CaseStage = "ESCALATED"
	StagePromiseToPay CaseStage = "PROMISE_TO_PAY"
	StageResolved     CaseStage = "RESOLVED"
	StageManualReview CaseStage = "MANUAL_REVIEW"
)

// IsValid indica si la etapa es conocida.
func (s CaseStage) IsValid() bool {
	switch s {
	case StageInitial, StageReminder1, StageReminder2, StageEscalated,
		StagePromiseToPay, StageResolved, StageManualReview:
		return true
	}
	return false
}

// CaseStatus estado operativo del caso.
type CaseStatus string

const (
	CaseStatusActive CaseStatus = "ACTIVE"
	CaseStatusPaused CaseStatus = "PAUSED"
	CaseStatusClosed CaseStatus = "CLOSED"
)

// IsValid indica si el estado es conocido.
func (s CaseStatus) IsValid() bool {
	return s == CaseStatusActive || s == CaseStatusPaused || s == CaseStatusClosed
}

// RiskLevel riesgo de incobrabilidad estimado.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// IsValid indica si el nivel es conocido.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// CollectionCase gestión de cobro de una factura.
// Invariante: Stage == RESOLVED si y solo si Status == CLOSED.
type CollectionCase struct {
	ID                  string     `json:"id"`
	OrganizationID      string     `json:"organization_id"`
	InvoiceID           string     `json:"invoice_id"`
	Stage               CaseStage  `json:"stage"`
	Status              CaseStatus `json:"status"`
	RiskLevel           RiskLevel  `json:"risk_level"`
	PrimaryContactID    string     `json:"primary_contact_id,omitempty"`
	LastCommunicationAt *time.Time `json:"last_communication_at,omitempty"`
	NextActionAt        *time.Time `json:"next_action_at,omitempty"`
	LastAgentActionAt   *time.Time `json:"last_agent_action_at,omitempty"`
	EscalationAt        *time.Time `json:"escalation_at,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
	Summary             string     `json:"summary,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CollectionCaseDraft datos de apertura de un caso.
type CollectionCaseDraft struct {
	ID               string
	OrganizationID   string
	InvoiceID        string
	Stage            CaseStage  // vacío = INITIAL
	Status           CaseStatus // vacío = ACTIVE
	RiskLevel        RiskLevel  // vacío = LOW
	PrimaryContactID string
	NextActionAt     *time.Time
	Summary          string
}

// NewCollectionCase valida el borrador, incluida la paridad RESOLVED/CLOSED.
func NewCollectionCase(d CollectionCaseDraft, now time.Time) (*CollectionCase, error) {
	if strings.TrimSpace(d.InvoiceID) == "" {
		return nil, domain.ErrCaseMissingInvoice
	}
	stage, status, risk := d.Stage, d.Status, d.RiskLevel
	if stage == "" {
		stage = StageInitial
	}
	if status == "" {
		status = CaseStatusActive
	}
	if risk == "" {
		risk = RiskLow
	}
	if !stage.IsValid() {
		return nil, domain.Invalid(domain.ErrCaseInvalidStage, "%q", stage)
	}
	if !status.IsValid() {
		return nil, domain.Invalid(domain.ErrCaseInvalidStatusTransition, "estado %q", status)
	}
	if !risk.IsValid() {
		return nil, domain.Invalid(domain.ErrCaseInvalidRisk, "%q", risk)
	}
	if (stage == StageResolved) != (status == CaseStatusClosed) {
		return nil, domain.Invalid(domain.ErrCaseInvalidStatePairing, "etapa %s, estado %s", stage, status)
	}
	c := &CollectionCase{
		ID:               d.ID,
		OrganizationID:   d.OrganizationID,
		InvoiceID:        d.InvoiceID,
		Stage:            stage,
		Status:           status,
		RiskLevel:        risk,
		PrimaryContactID: d.PrimaryContactID,
		NextActionAt:     d.NextActionAt,
		Summary:          d.Summary,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if status == CaseStatusClosed {
		t := now
		c.ClosedAt = &t
	}
	return c, nil
}

// IsClosed indica si el caso está cerrado (terminal).
func (c *CollectionCase) IsClosed() bool {
	return c.Status == CaseStatusClosed
}
