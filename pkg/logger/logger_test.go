package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliofantozzi/cobra/pkg/logger"
)

func TestNew_Nivel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"warn":        zerolog.WarnLevel,
		" DEBUG ":     zerolog.DebugLevel,
		"":            zerolog.InfoLevel,
		"desconocido": zerolog.InfoLevel,
	}
	for in, want := range cases {
		l := logger.New(logger.Config{Env: "production", Level: in, Output: &bytes.Buffer{}})
		assert.Equal(t, want, l.Zerolog().GetLevel(), "nivel %q", in)
	}
}

func TestNew_CamposJSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Service: "cobra", Output: &buf})

	l.WithOrganization("org-1").Info().Str("invoice_id", "inv-1").Msg("factura recalculada")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cobra", line["service"])
	assert.Equal(t, "org-1", line["organization_id"])
	assert.Equal(t, "inv-1", line["invoice_id"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "factura recalculada", line["message"])
}

func TestNew_FiltraPorNivel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})

	l.Info().Msg("no debe salir")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("sí sale")
	assert.Contains(t, buf.String(), "sí sale")
}

func TestNop(t *testing.T) {
	l := logger.Nop().WithOrganization("org-1")
	assert.NotPanics(t, func() { l.Info().Str("k", "v").Msg("descartado") })
}
