package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReplyClassificationInput contexto que recibe el clasificador de respuestas.
type ReplyClassificationInput struct {
	Channel       string
	Subject       string
	Body          string
	InvoiceNumber string
	Currency      string
	Outstanding   decimal.Decimal
	DueDate       time.Time
	Today         time.Time
}

// ReplyClassificationDTO respuesta estructurada del clasificador.
type ReplyClassificationDTO struct {
	Intent      string  `json:"intent"`       // PROMISE_TO_PAY | ALREADY_PAID | DISPUTE | REQUEST_INFO | OPT_OUT | OTHER
	Confidence  float64 `json:"confidence"`   // 0..1
	PromiseDate string  `json:"promise_date"` // YYYY-MM-DD o vacío
	Summary     string  `json:"summary"`
}
