package entity

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/domain"
)

// Channel canal de comunicación.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsapp Channel = "WHATSAPP"
	ChannelSMS      Channel = "SMS"
	ChannelPhone    Channel = "PHONE"
	ChannelOther    Channel = "OTHER"
)

// IsValid indica si el canal es conocido.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsapp, ChannelSMS, ChannelPhone, ChannelOther:
		return true
	}
	return false
}

// Direction sentido del mensaje.
type Direction string

const (
	DirectionOutbound Direction = "OUTBOUND"
	DirectionInbound  Direction = "INBOUND"
)

// CommunicationStatus estado de entrega de un intento.
type CommunicationStatus string

const (
	CommunicationStatusDraft        CommunicationStatus = "DRAFT"
	CommunicationStatusPending      CommunicationStatus = "PENDING"
	CommunicationStatusSent         CommunicationStatus = "SENT"
	CommunicationStatusDelivered    CommunicationStatus = "DELIVERED"
	CommunicationStatusFailed       CommunicationStatus = "FAILED"
	CommunicationStatusAcknowledged CommunicationStatus = "ACKNOWLEDGED"
)

// CommunicationAttempt un mensaje saliente o entrante asociado a un caso.
type CommunicationAttempt struct {
	ID               string              `json:"id"`
	OrganizationID   string              `json:"organization_id"`
	CollectionCaseID string              `json:"collection_case_id"`
	ContactID        string              `json:"contact_id,omitempty"`
	Channel          Channel             `json:"channel"`
	Direction        Direction           `json:"direction"`
	Status           CommunicationStatus `json:"status"`
	Subject          string              `json:"subject,omitempty"`
	Body             string              `json:"body,omitempty"`
	Payload          json.RawMessage     `json:"payload,omitempty"`
	ExternalID       string              `json:"external_id,omitempty"`
	SentAt           *time.Time          `json:"sent_at,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	ReadAt           *time.Time          `json:"read_at,omitempty"`
	Error            string              `json:"error,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// CommunicationAttemptDraft datos de creación de un intento.
type CommunicationAttemptDraft struct {
	ID               string
	OrganizationID   string
	CollectionCaseID string
	ContactID        string
	Channel          Channel
	Direction        Direction
	Subject          string
	Body             string
	Payload          json.RawMessage
}

// NewCommunicationAttempt crea el intento en estado DRAFT.
func NewCommunicationAttempt(d CommunicationAttemptDraft, now time.Time) (*CommunicationAttempt, error) {
	if strings.TrimSpace(d.CollectionCaseID) == "" {
		return nil, domain.ErrCommunicationMissingCase
	}
	if !d.Channel.IsValid() {
		return nil, domain.Invalid(domain.ErrCommunicationInvalidChannel, "%q", d.Channel)
	}
	if d.Channel == ChannelOther && strings.TrimSpace(d.Subject) == "" && strings.TrimSpace(d.Body) == "" {
		return nil, domain.ErrCommunicationMissingContent
	}
	dir := d.Direction
	if dir == "" {
		dir = DirectionOutbound
	}
	if dir != DirectionOutbound && dir != DirectionInbound {
		return nil, domain.Invalid(domain.ErrInvalidInput, "dirección %q", d.Direction)
	}
	return &CommunicationAttempt{
		ID:               d.ID,
		OrganizationID:   d.OrganizationID,
		CollectionCaseID: d.CollectionCaseID,
		ContactID:        d.ContactID,
		Channel:          d.Channel,
		Direction:        dir,
		Status:           CommunicationStatusDraft,
		Subject:          d.Subject,
		Body:             d.Body,
		Payload:          d.Payload,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
