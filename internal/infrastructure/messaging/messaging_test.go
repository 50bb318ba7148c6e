package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/internal/infrastructure/messaging"
	"github.com/emiliofantozzi/cobra/pkg/config"
	"github.com/emiliofantozzi/cobra/pkg/logger"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func emailMsg() ports.OutboundMessage {
	return ports.OutboundMessage{
		AttemptID:      "att-1",
		OrganizationID: "org-1",
		Channel:        entity.ChannelEmail,
		To:             "pagos@cliente.co",
		ToName:         "Ana Pérez",
		Subject:        "Recordatorio FV-100",
		Body:           "Su factura vence hoy.",
		Attachments:    []ports.Attachment{{Filename: "estado.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}},
	}
}

func TestEmailSender_ArmaMensajeConMessageID(t *testing.T) {
	d := &fakeDialer{}
	s := messaging.NewEmailSenderWithDialer(d, "cobranza@acme.co")

	rec, err := s.Send(context.Background(), emailMsg())
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"Recordatorio FV-100"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"att-1"}, m.GetHeader("X-Cobra-Attempt"))
	assert.Equal(t, []string{rec.ExternalID}, m.GetHeader("Message-ID"))
	assert.Contains(t, rec.ExternalID, "@acme.co>")
	assert.Nil(t, rec.DeliveredAt)
}

func TestEmailSender_ErrorSMTP(t *testing.T) {
	s := messaging.NewEmailSenderWithDialer(&fakeDialer{err: errors.New("connection refused")}, "cobranza@acme.co")
	_, err := s.Send(context.Background(), emailMsg())
	assert.ErrorContains(t, err, "connection refused")
}

func TestEmailSender_CanalEquivocado(t *testing.T) {
	msg := emailMsg()
	msg.Channel = entity.ChannelSMS
	_, err := messaging.NewEmailSenderWithDialer(&fakeDialer{}, "cobranza@acme.co").Send(context.Background(), msg)
	assert.Error(t, err)
}

func whatsappMsg() ports.OutboundMessage {
	return ports.OutboundMessage{AttemptID: "att-2", Channel: entity.ChannelWhatsapp, To: "+573001234567", Body: "Hola"}
}

func newWhatsapp(url string, retries uint64) *messaging.HTTPSender {
	cfg := config.ProviderConfig{BaseURL: url, Token: "tok", Sender: "+15550001", Timeout: time.Second}
	return messaging.NewHTTPSender(entity.ChannelWhatsapp, cfg, retries).
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} })
}

func TestHTTPSender_ReintentaErrorTransitorio(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "+573001234567", body["to"])
		assert.Equal(t, "att-2", body["reference"])

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "wamid.1", "status": "delivered"})
	}))
	defer srv.Close()

	rec, err := newWhatsapp(srv.URL, 3).Send(context.Background(), whatsappMsg())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "wamid.1", rec.ExternalID)
	require.NotNil(t, rec.DeliveredAt)
	assert.Equal(t, 2, rec.Metadata["attempts"])
}

func TestHTTPSender_Error4xxNoSeReintenta(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"numero invalido"}`))
	}))
	defer srv.Close()

	_, err := newWhatsapp(srv.URL, 3).Send(context.Background(), whatsappMsg())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSender_AgotaReintentos(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newWhatsapp(srv.URL, 2).Send(context.Background(), whatsappMsg())
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

type recordingSender struct {
	got []ports.OutboundMessage
}

func (s *recordingSender) Send(_ context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	s.got = append(s.got, msg)
	return &ports.SendReceipt{ExternalID: "x-" + msg.AttemptID, SentAt: time.Now()}, nil
}

func TestChannelRouter_EnrutaPorCanal(t *testing.T) {
	email, sms := &recordingSender{}, &recordingSender{}
	r := messaging.NewChannelRouter(0, 1).
		Register(entity.ChannelEmail, email).
		Register(entity.ChannelSMS, sms)

	rec, err := r.Send(context.Background(), ports.OutboundMessage{AttemptID: "a1", Channel: entity.ChannelSMS})
	require.NoError(t, err)
	assert.Equal(t, "x-a1", rec.ExternalID)
	assert.Len(t, sms.got, 1)
	assert.Empty(t, email.got)

	_, err = r.Send(context.Background(), ports.OutboundMessage{Channel: entity.ChannelWhatsapp})
	assert.ErrorContains(t, err, "sin proveedor")
}

func TestChannelRouter_ContextoCanceladoEsperandoTurno(t *testing.T) {
	r := messaging.NewChannelRouter(0.001, 1).Register(entity.ChannelEmail, &recordingSender{})
	_, err := r.Send(context.Background(), ports.OutboundMessage{Channel: entity.ChannelEmail})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Send(ctx, ports.OutboundMessage{Channel: entity.ChannelEmail})
	assert.Error(t, err)
}

func TestNewRouterFromConfig_SinProveedoresUsaLog(t *testing.T) {
	r := messaging.NewRouterFromConfig(config.MessagingConfig{}, logger.Nop())
	assert.ElementsMatch(t, []entity.Channel{entity.ChannelEmail, entity.ChannelWhatsapp, entity.ChannelSMS}, r.Channels())

	rec, err := r.Send(context.Background(), whatsappMsg())
	require.NoError(t, err)
	assert.Contains(t, rec.ExternalID, "log-")
}
