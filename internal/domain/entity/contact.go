package entity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// EmailStatus resultado de la validación de entregabilidad del email.
type EmailStatus string

const (
	EmailStatusDeliverable EmailStatus = "DELIVERABLE"
	EmailStatusBounce      EmailStatus = "BOUNCE"
	EmailStatusUnknown     EmailStatus = "UNKNOWN"
)

// WhatsappStatus resultado de la validación del número de WhatsApp.
type WhatsappStatus string

const (
	WhatsappStatusNotValidated WhatsappStatus = "NOT_VALIDATED"
	WhatsappStatusValidated    WhatsappStatus = "VALIDATED"
	WhatsappStatusBlocked      WhatsappStatus = "BLOCKED"
	WhatsappStatusUnknown      WhatsappStatus = "UNKNOWN"
)

// minPhoneDigits mínimo de dígitos aceptado para teléfonos y WhatsApp.
const minPhoneDigits = 6

// Contact persona de contacto de una empresa cliente.
type Contact struct {
	ID                 string         `json:"id"`
	OrganizationID     string         `json:"organization_id"`
	CustomerCompanyID  string         `json:"customer_company_id"`
	FirstName          string         `json:"first_name,omitempty"`
	LastName           string         `json:"last_name,omitempty"`
	Email              string         `json:"email,omitempty"`
	PhoneNumber        string         `json:"phone_number,omitempty"`
	WhatsappNumber     string         `json:"whatsapp_number,omitempty"`
	Role               string         `json:"role,omitempty"`
	PreferredChannel   Channel        `json:"preferred_channel,omitempty"`
	EmailStatus        EmailStatus    `json:"email_status"`
	WhatsappStatus     WhatsappStatus `json:"whatsapp_status"`
	IsPrimary          bool           `json:"is_primary"`
	IsBillingContact   bool           `json:"is_billing_contact"`
	OptedOutEmail      bool           `json:"opted_out_email"`
	OptedOutEmailAt    *time.Time     `json:"opted_out_email_at,omitempty"`
	OptedOutWhatsapp   bool           `json:"opted_out_whatsapp"`
	OptedOutWhatsappAt *time.Time     `json:"opted_out_whatsapp_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// ContactDraft datos de alta de un contacto.
type ContactDraft struct {
	ID                string
	OrganizationID    string
	CustomerCompanyID string
	FirstName         string
	LastName          string
	Email             string
	PhoneNumber       string
	WhatsappNumber    string
	Role              string
	PreferredChannel  Channel
	IsPrimary         bool
	IsBillingContact  bool
}

// NewContact valida y normaliza el borrador. Exige al menos un canal.
// La unicidad de contacto principal/facturación por empresa la garantiza la capa de servicio.
func NewContact(d ContactDraft, now time.Time) (*Contact, error) {
	if strings.TrimSpace(d.CustomerCompanyID) == "" {
		return nil, domain.ErrContactMissingCompany
	}
	c := &Contact{
		ID:                d.ID,
		OrganizationID:    d.OrganizationID,
		CustomerCompanyID: d.CustomerCompanyID,
		FirstName:         strings.TrimSpace(d.FirstName),
		LastName:          strings.TrimSpace(d.LastName),
		Role:              strings.TrimSpace(d.Role),
		EmailStatus:       EmailStatusUnknown,
		WhatsappStatus:    WhatsappStatusNotValidated,
		IsPrimary:         d.IsPrimary,
		IsBillingContact:  d.IsBillingContact,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := c.SetChannels(d.Email, d.PhoneNumber, d.WhatsappNumber); err != nil {
		return nil, err
	}
	if err := c.SetPreferredChannel(d.PreferredChannel); err != nil {
		return nil, err
	}
	return c, nil
}

// SetChannels reemplaza los canales del contacto validando que quede al menos uno.
func (c *Contact) SetChannels(email, phone, whatsapp string) error {
	email = strings.TrimSpace(email)
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil {
			return domain.Invalid(domain.ErrContactInvalidEmail, "%q", email)
		}
		email = strings.ToLower(addr.Address)
	}
	var err error
	if phone, err = normalizeOptionalPhone(phone); err != nil {
		return err
	}
	if whatsapp, err = normalizeOptionalPhone(whatsapp); err != nil {
		return err
	}
	if email == "" && phone == "" && whatsapp == "" {
		return domain.ErrContactMissingChannel
	}
	if email != c.Email {
		c.EmailStatus = EmailStatusUnknown
	}
	if whatsapp != c.WhatsappNumber {
		c.WhatsappStatus = WhatsappStatusNotValidated
	}
	c.Email, c.PhoneNumber, c.WhatsappNumber = email, phone, whatsapp
	return nil
}

// SetPreferredChannel fija el canal preferido; debe ser un canal disponible en el contacto.
func (c *Contact) SetPreferredChannel(ch Channel) error {
	if ch != "" && !c.HasChannel(ch) {
		return domain.Invalid(domain.ErrContactInvalidPreference, "%s", ch)
	}
	c.PreferredChannel = ch
	return nil
}

// HasChannel indica si el contacto tiene dato para el canal.
func (c *Contact) HasChannel(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.Email != ""
	case ChannelWhatsapp:
		return c.WhatsappNumber != ""
	case ChannelSMS, ChannelPhone:
		return c.PhoneNumber != ""
	}
	return false
}

// CanReceive indica si se le puede escribir por el canal (dato presente, sin baja ni bloqueo).
func (c *Contact) CanReceive(ch Channel) bool {
	if !c.HasChannel(ch) {
		return false
	}
	switch ch {
	case ChannelEmail:
		return !c.OptedOutEmail && c.EmailStatus != EmailStatusBounce
	case ChannelWhatsapp:
		return !c.OptedOutWhatsapp && c.WhatsappStatus != WhatsappStatusBlocked
	}
	return true
}

// Address devuelve el destino del contacto para un canal.
func (c *Contact) Address(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return c.Email
	case ChannelWhatsapp:
		return c.WhatsappNumber
	case ChannelSMS, ChannelPhone:
		return c.PhoneNumber
	}
	return ""
}

// FullName nombre completo para saludos y PDF.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// OptOut registra la baja del contacto en email o WhatsApp.
func (c *Contact) OptOut(ch Channel, now time.Time) error {
	t := now
	switch ch {
	case ChannelEmail:
		c.OptedOutEmail, c.OptedOutEmailAt = true, &t
	case ChannelWhatsapp:
		c.OptedOutWhatsapp, c.OptedOutWhatsappAt = true, &t
	default:
		return domain.Invalid(domain.ErrCommunicationInvalidChannel, "baja no soportada para %s", ch)
	}
	c.UpdatedAt = now
	return nil
}

// NormalizePhone deja solo dígitos y un '+' inicial opcional; exige un mínimo de dígitos.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		}
	}
	if digits < minPhoneDigits {
		return "", domain.Invalid(domain.ErrContactInvalidPhone, "%q", raw)
	}
	return b.String(), nil
}

func normalizeOptionalPhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return NormalizePhone(raw)
}
