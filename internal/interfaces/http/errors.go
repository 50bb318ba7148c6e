package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/domain"
)

// writeError traduce un error de los casos de uso a su status HTTP.
// Los errores sin categoría de dominio son 500 y no exponen su mensaje.
func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(domain.KindOf(err))
	code := domain.CodeOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		code, msg = "INTERNAL", "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidTransition, domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindTransport:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler handler de errores de Fiber para lo que escapa de los handlers (404 de ruta, panics recuperados).
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
	}
	return writeError(c, err)
}
