package entity

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// AgentRunStatus estado de una ejecución del agente.
type AgentRunStatus string

const (
	AgentRunPending   AgentRunStatus = "PENDING"
	AgentRunRunning   AgentRunStatus = "RUNNING"
	AgentRunCompleted AgentRunStatus = "COMPLETED"
	AgentRunFailed    AgentRunStatus = "FAILED"
	AgentRunCancelled AgentRunStatus = "CANCELLED"
)

// IsTerminal indica si la ejecución ya finalizó.
func (s AgentRunStatus) IsTerminal() bool {
	return s == AgentRunCompleted || s == AgentRunFailed || s == AgentRunCancelled
}

// AgentRun una ejecución del agente automático sobre un caso.
type AgentRun struct {
	ID               string          `json:"id"`
	OrganizationID   string          `json:"organization_id"`
	CollectionCaseID string          `json:"collection_case_id"`
	Status           AgentRunStatus  `json:"status"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
	Error            string          `json:"error,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewAgentRun crea una ejecución en PENDING.
func NewAgentRun(id, organizationID, caseID string, metadata json.RawMessage, now time.Time) (*AgentRun, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, domain.ErrAgentRunMissingCase
	}
	return &AgentRun{
		ID:               id,
		OrganizationID:   organizationID,
		CollectionCaseID: caseID,
		Status:           AgentRunPending,
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
