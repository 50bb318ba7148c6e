package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/application/ports"
)

var _ ports.ReplyClassifier = (*AnthropicService)(nil)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"

	anthropicSystemPrompt = `Eres un analista de cobranza. Clasificas la respuesta de un deudor a un recordatorio de pago.
Devuelve ÚNICAMENTE un objeto JSON válido (sin markdown, sin bloques de código` + " ```json" + `) con esta estructura exacta:
{
  "intent": "<PROMISE_TO_PAY | ALREADY_PAID | DISPUTE | REQUEST_INFO | OPT_OUT | OTHER>",
  "confidence": <número decimal entre 0.0 y 1.0>,
  "promise_date": "<YYYY-MM-DD si el deudor compromete una fecha de pago, si no cadena vacía>",
  "summary": "<resumen en español de la respuesta, máximo 200 caracteres>"
}

Reglas:
- PROMISE_TO_PAY: se compromete a pagar. Fechas relativas ("el viernes") se resuelven contra la fecha de hoy indicada.
- ALREADY_PAID: afirma haber pagado. DISPUTE: rechaza la deuda o el monto.
- REQUEST_INFO: pide copia de la factura, datos bancarios o aclaraciones. OPT_OUT: pide no ser contactado por este canal.
- confidence: 0.9-1.0 = explícito, 0.6-0.89 = probable, <0.6 = ambiguo.
- No incluyas texto fuera del JSON. Solo el objeto JSON.`
)

// AnthropicService clasificador de respuestas entrantes sobre la API REST de Anthropic (Claude).
// Usa net/http; no requiere el SDK oficial.
type AnthropicService struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewAnthropicService construye el adaptador.
// Si apiKey está vacío las llamadas devuelven error descriptivo en lugar de panic.
func NewAnthropicService(apiKey, model string, timeout time.Duration) *AnthropicService {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &AnthropicService{
		apiKey:     apiKey,
		model:      model,
		endpoint:   anthropicMessagesURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithEndpoint apunta el cliente a otra URL de Messages API (proxy o servidor de pruebas).
func (s *AnthropicService) WithEndpoint(url string) *AnthropicService {
	s.endpoint = url
	return s
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// jsonBlockRe extrae el primer objeto JSON del texto aunque Claude lo envuelva en markdown.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ClassifyReply envía la respuesta del deudor junto con el contexto de la factura y devuelve la intención.
func (s *AnthropicService) ClassifyReply(ctx context.Context, in dto.ReplyClassificationInput) (*dto.ReplyClassificationDTO, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI: ANTHROPIC_API_KEY no configurado")
	}

	payload := anthropicRequest{
		Model:     s.model,
		MaxTokens: 512,
		System:    anthropicSystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt(in)},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("AI: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("AI: crear HTTP request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("AI: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("AI: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResp anthropicResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return nil, fmt.Errorf("AI: Anthropic error (%s): %s", errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("AI: Anthropic HTTP %d: %s", resp.StatusCode, string(rawBody))
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(rawBody, &anthResp); err != nil {
		return nil, fmt.Errorf("AI: deserializar respuesta Anthropic: %w", err)
	}
	if len(anthResp.Content) == 0 {
		return nil, fmt.Errorf("AI: Claude devolvió respuesta vacía")
	}

	rawText := anthResp.Content[0].Text
	cleanJSON := extractJSON(rawText)
	if cleanJSON == "" {
		return nil, fmt.Errorf("AI: no se encontró JSON válido en la respuesta del modelo (respuesta: %s)", rawText)
	}

	var out dto.ReplyClassificationDTO
	if err := json.Unmarshal([]byte(cleanJSON), &out); err != nil {
		return nil, fmt.Errorf("AI: parsear JSON de clasificación: %w (JSON extraído: %s)", err, cleanJSON)
	}
	out.Intent = strings.ToUpper(strings.TrimSpace(out.Intent))
	if out.Confidence < 0 {
		out.Confidence = 0
	} else if out.Confidence > 1 {
		out.Confidence = 1
	}
	return &out, nil
}

func userPrompt(in dto.ReplyClassificationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fecha de hoy: %s\n", in.Today.Format("2006-01-02"))
	fmt.Fprintf(&b, "Factura: %s, saldo %s %s, vence %s\n",
		in.InvoiceNumber, in.Outstanding.StringFixed(2), in.Currency, in.DueDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Canal: %s\n", in.Channel)
	if in.Subject != "" {
		fmt.Fprintf(&b, "Asunto: %s\n", in.Subject)
	}
	fmt.Fprintf(&b, "Respuesta del deudor:\n%s", in.Body)
	return b.String()
}

// extractJSON extrae el primer objeto JSON bien formado de un texto libre:
// quita el bloque markdown si lo hay y, si no empieza por '{', busca el primer {...}.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		if end := strings.LastIndex(after, "```"); end != -1 {
			after = after[:end]
		}
		text = strings.TrimSpace(after)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	return strings.TrimSpace(jsonBlockRe.FindString(text))
}
