// Package messaging contiene los transportes salientes de cobranza: SMTP para email, gateways HTTP para
// WhatsApp y SMS, y el enrutador que los reparte por canal bajo un límite de tasa común.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

var (
	_ ports.MessageSender = (*ChannelRouter)(nil)
	_ ports.MessageSender = (*LogSender)(nil)
)

// ChannelRouter elige el transporte según el canal del mensaje. Todas las llamadas a proveedores
// comparten un token bucket.
type ChannelRouter struct {
	senders map[entity.Channel]ports.MessageSender
	limiter *rate.Limiter
}

// NewChannelRouter crea un enrutador vacío. ratePerSec <= 0 desactiva el límite.
func NewChannelRouter(ratePerSec float64, burst int) *ChannelRouter {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	if burst < 1 {
		burst = 1
	}
	return &ChannelRouter{
		senders: map[entity.Channel]ports.MessageSender{},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Register asigna el transporte de un canal.
func (r *ChannelRouter) Register(ch entity.Channel, s ports.MessageSender) *ChannelRouter {
	r.senders[ch] = s
	return r
}

// Channels canales con transporte registrado.
func (r *ChannelRouter) Channels() []entity.Channel {
	out := make([]entity.Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}

// Send espera turno en el limitador y delega en el transporte del canal.
func (r *ChannelRouter) Send(ctx context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	s, ok := r.senders[msg.Channel]
	if !ok {
		return nil, fmt.Errorf("canal %s sin proveedor configurado", msg.Channel)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("límite de envío: %w", err)
	}
	return s.Send(ctx, msg)
}

// NewRouterFromConfig registra los proveedores configurados. Sin ninguno, todos los canales
// con dirección van a un LogSender (desarrollo local).
func NewRouterFromConfig(cfg config.MessagingConfig, log *logger.Logger) *ChannelRouter {
	r := NewChannelRouter(cfg.RatePerSec, cfg.RateBurst)
	if cfg.SMTP.Enabled() {
		r.Register(entity.ChannelEmail, NewEmailSender(cfg.SMTP))
	}
	if cfg.WhatsApp.Enabled() {
		r.Register(entity.ChannelWhatsapp, NewHTTPSender(entity.ChannelWhatsapp, cfg.WhatsApp, cfg.MaxRetries))
	}
	if cfg.SMS.Enabled() {
		r.Register(entity.ChannelSMS, NewHTTPSender(entity.ChannelSMS, cfg.SMS, cfg.MaxRetries))
	}
	if len(r.senders) == 0 {
		ls := NewLogSender(log)
		for _, ch := range []entity.Channel{entity.ChannelEmail, entity.ChannelWhatsapp, entity.ChannelSMS} {
			r.Register(ch, ls)
		}
		log.Warn().Msg("sin proveedores de mensajería: los envíos solo se registran en el log")
	}
	return r
}

// LogSender transporte de desarrollo: registra el mensaje y lo da por enviado.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender construye el transporte de log.
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	id := "log-" + uuid.New().String()
	s.log.Info().
		Str("organization_id", msg.OrganizationID).
		Str("attempt_id", msg.AttemptID).
		Str("channel", string(msg.Channel)).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Str("external_id", id).
		Msg("mensaje saliente (sin proveedor)")
	return &ports.SendReceipt{ExternalID: id, SentAt: time.Now().UTC()}, nil
}
