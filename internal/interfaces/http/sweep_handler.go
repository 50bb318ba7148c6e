package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
)

// SweepHandler disparo manual del barrido (operación de plataforma, no de un tenant).
type SweepHandler struct {
	sweeper *collections.Sweeper
}

// NewSweepHandler construye el handler.
func NewSweepHandler(s *collections.Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: s}
}

// Run godoc
// @Summary      Ejecutar una pasada del barrido sobre todas las organizaciones
// @Tags         operations
// @Produce      json
// @Success      200  {object}  collections.SweepReport
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/v1/sweeps [post]
func (h *SweepHandler) Run(c *fiber.Ctx) error {
	report, err := h.sweeper.Run(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}
