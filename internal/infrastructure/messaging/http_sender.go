package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/emiliofantozzi/cobra/internal/application/ports"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
	"github.com/emiliofantozzi/cobra/pkg/config"
)

var _ ports.MessageSender = (*HTTPSender)(nil)

// HTTPSender entrega mensajes a un gateway HTTP (WhatsApp Business o SMS).
// Contrato del gateway: POST {base}/messages con JSON {channel, from, to, body, reference} y
// Authorization: Bearer; responde {id, status}. status "delivered" confirma entrega síncrona.
type HTTPSender struct {
	channel    entity.Channel
	baseURL    string
	token      string
	sender     string
	maxRetries uint64
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// NewHTTPSender construye el sender de un canal. maxRetries cuenta reintentos además del primer intento.
func NewHTTPSender(channel entity.Channel, cfg config.ProviderConfig, maxRetries uint64) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		channel:    channel,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		sender:     cfg.Sender,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithBackOff reemplaza la política de espera entre reintentos.
func (s *HTTPSender) WithBackOff(f func() backoff.BackOff) *HTTPSender {
	s.newBackOff = f
	return s
}

type gatewayRequest struct {
	Channel   string `json:"channel"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Body      string `json:"body"`
	Reference string `json:"reference,omitempty"`
}

type gatewayResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Send publica el mensaje. Errores de red, 429 y 5xx se reintentan; otros 4xx son definitivos.
func (s *HTTPSender) Send(ctx context.Context, msg ports.OutboundMessage) (*ports.SendReceipt, error) {
	if msg.Channel != s.channel {
		return nil, fmt.Errorf("%s: canal %s no soportado", strings.ToLower(string(s.channel)), msg.Channel)
	}
	payload, err := json.Marshal(gatewayRequest{
		Channel:   string(s.channel),
		From:      s.sender,
		To:        msg.To,
		Body:      msg.Body,
		Reference: msg.AttemptID,
	})
	if err != nil {
		return nil, fmt.Errorf("serializar mensaje: %w", err)
	}

	var out gatewayResponse
	attempts := 0
	operation := func() error {
		attempts++
		return s.post(ctx, payload, &out)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%s: %d intento(s): %w", strings.ToLower(string(s.channel)), attempts, err)
	}

	receipt := &ports.SendReceipt{
		ExternalID: out.ID,
		SentAt:     s.now(),
		Metadata:   map[string]any{"provider_status": out.Status, "attempts": attempts},
	}
	if strings.EqualFold(out.Status, "delivered") {
		at := receipt.SentAt
		receipt.DeliveredAt = &at
	}
	return receipt, nil
}

func (s *HTTPSender) post(ctx context.Context, payload []byte, out *gatewayResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("crear HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("leer respuesta: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("gateway HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	case resp.StatusCode >= 300:
		return backoff.Permanent(fmt.Errorf("gateway HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("deserializar respuesta: %w", err))
	}
	if out.ID == "" {
		return backoff.Permanent(fmt.Errorf("gateway sin id de mensaje"))
	}
	return nil
}
