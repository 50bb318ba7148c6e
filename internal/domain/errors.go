package domain

import (
	"errors"
	"fmt"
)

// Kind clasifica los errores de dominio para que el caller decida reintentar o abortar.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindTransport         Kind = "transport"
)

// DomainError error de dominio con código estable (ej. "invoice.invalid_amount") y mensaje legible.
// Dos DomainError son equivalentes para errors.Is si comparten Code.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is permite errors.Is(err, ErrXxx) comparando por código.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(kind Kind, code, msg string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: msg}
}

// Errores genéricos.
var (
	ErrNotFound     = newError(KindNotFound, "not_found", "recurso no encontrado")
	ErrInvalidInput = newError(KindValidation, "invalid_input", "entrada inválida")
	ErrDuplicate    = newError(KindConflict, "duplicate", "recurso duplicado")
	ErrConflict     = newError(KindConflict, "conflict", "conflicto con el estado actual")
	ErrUnauthorized = newError(KindValidation, "unauthorized", "no autorizado")
)

// Empresas cliente y contactos.
var (
	ErrCompanyInvalidName       = newError(KindValidation, "customer_company.invalid_name", "el nombre de la empresa es requerido")
	ErrCompanyInvalidStatus     = newError(KindValidation, "customer_company.invalid_status", "estado de empresa inválido")
	ErrCompanyArchived          = newError(KindInvalidTransition, "customer_company.archived", "la empresa está archivada")
	ErrCompanyInvalidTaxID      = newError(KindValidation, "customer_company.invalid_tax_id", "NIT inválido")
	ErrContactMissingChannel    = newError(KindValidation, "contact.missing_channel", "el contacto requiere al menos un canal")
	ErrContactInvalidPhone      = newError(KindValidation, "contact.invalid_phone", "número telefónico inválido")
	ErrContactInvalidEmail      = newError(KindValidation, "contact.invalid_email", "email inválido")
	ErrContactInvalidPreference = newError(KindValidation, "contact.invalid_preferred_channel", "el canal preferido no está disponible para el contacto")
	ErrContactMissingCompany    = newError(KindValidation, "contact.missing_company", "el contacto debe pertenecer a una empresa")
)

// Facturas, cuotas y pagos.
var (
	ErrInvoiceInvalidAmount        = newError(KindValidation, "invoice.invalid_amount", "el monto de la factura debe ser mayor a cero")
	ErrInvoiceInvalidDates         = newError(KindValidation, "invoice.invalid_dates", "la fecha de vencimiento no puede ser anterior a la de emisión")
	ErrInvoiceInvalidInitialStatus = newError(KindValidation, "invoice.invalid_initial_status", "estado inicial de factura no permitido")
	ErrInvoiceInvalidCurrency      = newError(KindValidation, "invoice.invalid_currency", "código de moneda ISO 4217 inválido")
	ErrInvoiceMissingNumber        = newError(KindValidation, "invoice.missing_number", "el número de factura es requerido")
	ErrInvoiceMissingCompany       = newError(KindValidation, "invoice.missing_company", "la factura debe pertenecer a una empresa")
	ErrInvoiceInvalidTransition    = newError(KindInvalidTransition, "invoice.invalid_status_transition", "transición de estado de factura inválida")
	ErrInstallmentInvalidSequence  = newError(KindValidation, "installment.invalid_sequence", "la secuencia de la cuota debe ser mayor o igual a 1")
	ErrInstallmentInvalidAmount    = newError(KindValidation, "installment.invalid_amount", "el monto de la cuota debe ser mayor a cero")
	ErrInstallmentMismatch         = newError(KindValidation, "installment.invoice_mismatch", "la cuota no pertenece a la factura")
	ErrPaymentInvalidAmount        = newError(KindValidation, "payment.invalid_amount", "el monto del pago debe ser mayor a cero")
	ErrPaymentInvalidCurrency      = newError(KindValidation, "payment.invalid_currency", "la moneda del pago no coincide con la factura")
	ErrPaymentInvalidStatus        = newError(KindValidation, "payment.invalid_status", "estado de pago inválido")
	ErrPaymentInvalidTransition    = newError(KindInvalidTransition, "payment.invalid_status_transition", "transición de estado de pago inválida")
)

// Casos de cobranza.
var (
	ErrCaseInvalidStageTransition  = newError(KindInvalidTransition, "collection_case.invalid_stage_transition", "transición de etapa inválida")
	ErrCaseInvalidStatusTransition = newError(KindInvalidTransition, "collection_case.invalid_status_transition", "transición de estado del caso inválida")
	ErrCaseInvalidStatePairing     = newError(KindValidation, "collection_case.invalid_state_pairing", "la etapa RESOLVED debe coincidir con el estado CLOSED")
	ErrCaseInvalidStage            = newError(KindValidation, "collection_case.invalid_stage", "etapa de caso inválida")
	ErrCaseInvalidRisk             = newError(KindValidation, "collection_case.invalid_risk_level", "nivel de riesgo inválido")
	ErrCaseMissingInvoice          = newError(KindValidation, "collection_case.missing_invoice", "el caso debe pertenecer a una factura")
	ErrCaseAlreadyOpen             = newError(KindConflict, "collection_case.already_open", "la factura ya tiene un caso de cobranza abierto")
)

// Comunicaciones.
var (
	ErrCommunicationInvalidStatus  = newError(KindInvalidTransition, "communication.invalid_status", "estado de comunicación inválido para la operación")
	ErrCommunicationMissingContent = newError(KindValidation, "communication.missing_content", "el canal OTHER requiere asunto o cuerpo")
	ErrCommunicationInvalidChannel = newError(KindValidation, "communication.invalid_channel", "canal de comunicación inválido")
	ErrCommunicationMissingCase    = newError(KindValidation, "communication.missing_case", "la comunicación debe pertenecer a un caso")
	ErrCommunicationOptedOut       = newError(KindValidation, "communication.contact_opted_out", "el contacto se dio de baja del canal")
	ErrTransport                   = newError(KindTransport, "communication.transport_failed", "falló el envío del mensaje")
)

// Agente.
var (
	ErrAgentRunInvalidTransition    = newError(KindInvalidTransition, "agent_run.invalid_status_transition", "transición de estado de ejecución inválida")
	ErrAgentRunMissingCase          = newError(KindValidation, "agent_run.missing_case", "la ejecución debe pertenecer a un caso")
	ErrAgentActionInvalidTransition = newError(KindInvalidTransition, "agent_action.invalid_status_transition", "transición de estado de acción inválida")
	ErrAgentActionInvalidType       = newError(KindValidation, "agent_action.invalid_type", "tipo de acción inválido")
	ErrAgentActionRunClosed         = newError(KindInvalidTransition, "agent_action.run_not_running", "la ejecución no acepta nuevas acciones")
	ErrAgentConfigInvalidTimezone   = newError(KindValidation, "agent_config.invalid_timezone", "zona horaria inválida")
	ErrAgentConfigInvalidChannel    = newError(KindValidation, "agent_config.invalid_channel", "canal de escalamiento inválido")
)

// Invalid agrega detalle a un error de dominio conservando su código.
func Invalid(base *DomainError, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// CodeOf devuelve el código estable del error de dominio envuelto en err ("" si no hay).
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// KindOf devuelve la categoría del error de dominio envuelto en err ("" si no hay).
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsValidation(err error) bool        { return KindOf(err) == KindValidation }
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }
func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
