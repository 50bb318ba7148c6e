package messaging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/pkg/config"
)

var _ ports.MessageSender = (*EmailSender)(nil)

// Dialer lo que EmailSender necesita de gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender envía recordatorios por SMTP. El Message-ID generado es el id externo del intento.
type EmailSender struct {
	dialer Dialer
	from   string
	now    func() time.Time
}

// NewEmailSender construye el sender con el servidor SMTP configurado.
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return NewEmailSenderWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

// NewEmailSenderWithDialer permite inyectar el transporte SMTP.
func NewEmailSenderWithDialer(d Dialer, from string) *EmailSender {
	return &EmailSender{dialer: d, from: from, now: func() time.Time { return time.Now().UTC() }}
}

// Send arma el mensaje con sus adjuntos y lo entrega al servidor SMTP.
// gomail no acepta contexto: solo se verifica que no esté cancelado antes de marcar.
func (s *EmailSender) Send(ctx context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	if msg.Channel != entity.ChannelEmail {
		return nil, fmt.Errorf("email: canal %s no soportado", msg.Channel)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), senderDomain(s.from))
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	if msg.AttemptID != "" {
		m.SetHeader("X-Cobra-Attempt", msg.AttemptID)
	}
	m.SetBody("text/plain", msg.Body)
	for _, a := range msg.Attachments {
		data := a.Data
		settings := []gomail.FileSetting{gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Filename, settings...)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return nil, fmt.Errorf("email: enviar a %s: %w", msg.To, err)
	}
	return &ports.SendReceipt{
		ExternalID: messageID,
		SentAt:     s.now(),
		Metadata:   map[string]any{"provider": "smtp"},
	}, nil
}

func senderDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.Trim(from[i+1:], "> ")
	}
	return "cobra.local"
}
