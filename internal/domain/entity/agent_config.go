package entity

import (
	"encoding/json"
	"strings"
	"time"
	_ "time/tzdata" // contenedores sin base de zonas horarias

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// DefaultTimezone zona horaria por defecto de una organización sin configuración.
const DefaultTimezone = "America/Bogota"

// Optional distingue "campo ausente" de "campo presente" en un parche.
// Un campo presente con valor cero limpia el valor almacenado.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some construye un Optional presente.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Apply sobrescribe dst solo si el campo está presente.
func (o Optional[T]) Apply(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}

// UnmarshalJSON marca el campo como presente cuando aparece en el JSON (incluido null).
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// AgentConfig configuración del agente por organización (una por tenant).
type AgentConfig struct {
	OrganizationID    string          `json:"organization_id"`
	DefaultTimezone   string          `json:"default_timezone"`
	EscalationContact string          `json:"escalation_contact,omitempty"`
	EscalationChannel Channel         `json:"escalation_channel,omitempty"`
	LLMModel          string          `json:"llm_model,omitempty"`
	WorkingHours      json.RawMessage `json:"working_hours,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AgentConfigPatch parche con semántica de merge: solo los campos presentes sobrescriben.
type AgentConfigPatch struct {
	DefaultTimezone   Optional[string]          `json:"default_timezone"`
	EscalationContact Optional[string]          `json:"escalation_contact"`
	EscalationChannel Optional[Channel]         `json:"escalation_channel"`
	LLMModel          Optional[string]          `json:"llm_model"`
	WorkingHours      Optional[json.RawMessage] `json:"working_hours"`
}

// NewDefaultAgentConfig configuración inicial de una organización.
func NewDefaultAgentConfig(organizationID string, now time.Time) *AgentConfig {
	return &AgentConfig{
		OrganizationID:  organizationID,
		DefaultTimezone: DefaultTimezone,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Location devuelve la zona horaria configurada (UTC si es inválida).
func (c *AgentConfig) Location() *time.Location {
	if c == nil || c.DefaultTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ApplyAgentConfigPatch devuelve una copia de cfg con el parche aplicado (applyAgentConfigPatch).
func ApplyAgentConfigPatch(cfg AgentConfig, patch AgentConfigPatch, now time.Time) (AgentConfig, error) {
	out := cfg
	patch.DefaultTimezone.Apply(&out.DefaultTimezone)
	patch.EscalationContact.Apply(&out.EscalationContact)
	patch.EscalationChannel.Apply(&out.EscalationChannel)
	patch.LLMModel.Apply(&out.LLMModel)
	patch.WorkingHours.Apply(&out.WorkingHours)

	out.DefaultTimezone = strings.TrimSpace(out.DefaultTimezone)
	if out.DefaultTimezone == "" {
		out.DefaultTimezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(out.DefaultTimezone); err != nil {
		return cfg, domain.Invalid(domain.ErrAgentConfigInvalidTimezone, "%q", out.DefaultTimezone)
	}
	if out.EscalationChannel != "" && !out.EscalationChannel.IsValid() {
		return cfg, domain.Invalid(domain.ErrAgentConfigInvalidChannel, "%q", out.EscalationChannel)
	}
	if len(out.WorkingHours) > 0 && !json.Valid(out.WorkingHours) {
		return cfg, domain.Invalid(domain.ErrInvalidInput, "working_hours no es JSON válido")
	}
	out.UpdatedAt = now
	return out, nil
}
