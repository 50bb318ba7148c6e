package pdf

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "0,00",
		"999.5":      "999,50",
		"1000":       "1.000,00",
		"1234567.89": "1.234.567,89",
		"-25000":     "-25.000,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestTrackingLabel_CodigoDesconocido(t *testing.T) {
	assert.Equal(t, "Promesa incumplida", trackingLabel("promesa_incumplida"))
	assert.Equal(t, "otro", trackingLabel("otro"))
}
