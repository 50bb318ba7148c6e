package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/dto"
)

// CaseHandler casos de cobranza y su canal de comunicaciones.
type CaseHandler struct {
	svc *collections.Service
}

// NewCaseHandler construye el handler.
func NewCaseHandler(svc *collections.Service) *CaseHandler {
	return &CaseHandler{svc: svc}
}

// Open godoc
// @Summary      Abrir caso de cobranza
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OpenCaseRequest  true  "Factura y contacto"
// @Success      201   {object}  entity.CollectionCase
// @Failure      409   {object}  dto.ErrorResponse  "la factura ya tiene un caso abierto"
// @Router       /api/v1/cases [post]
func (h *CaseHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenCaseRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.OpenCollectionCase(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener caso con historial de comunicaciones
// @Tags         cases
// @Produce      json
// @Param        id   path  string  true  "ID del caso"
// @Success      200  {object}  dto.CaseDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/cases/{id} [get]
func (h *CaseHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetCase(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Due godoc
// @Summary      Casos activos con acción vencida
// @Tags         cases
// @Produce      json
// @Param        limit  query  int  false  "Máximo de casos"  default(50)
// @Success      200    {array}  entity.CollectionCase
// @Router       /api/v1/cases/due [get]
func (h *CaseHandler) Due(c *fiber.Ctx) error {
	var in dto.CasesDueRequest
	if ok, err := bindQuery(c, &in); !ok {
		return err
	}
	out, err := h.svc.ListCasesDueForAction(c.UserContext(), repoContext(c), in.Limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// TransitionStage godoc
// @Summary      Mover el caso de etapa
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id    path  string                      true  "ID del caso"
// @Param        body  body  dto.TransitionStageRequest  true  "Etapa destino"
// @Success      200   {object}  entity.CollectionCase
// @Failure      409   {object}  dto.ErrorResponse  "transición no permitida"
// @Router       /api/v1/cases/{id}/stage [post]
func (h *CaseHandler) TransitionStage(c *fiber.Ctx) error {
	var in dto.TransitionStageRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.TransitionCaseStage(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetStatus godoc
// @Summary      Pausar, reactivar o cerrar el caso
// @Tags         cases
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del caso"
// @Param        body  body  dto.SetStatusRequest  true  "ACTIVE | PAUSED | CLOSED"
// @Success      200   {object}  entity.CollectionCase
// @Router       /api/v1/cases/{id}/status [patch]
func (h *CaseHandler) SetStatus(c *fiber.Ctx) error {
	var in dto.SetStatusRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.SetCaseStatus(c.UserContext(), repoContext(c), c.Params("id"), in.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SendCommunication godoc
// @Summary      Enviar comunicación al deudor
// @Description  Un fallo del proveedor no es error HTTP: el intento queda FAILED en la respuesta.
// @Tags         communications
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID del caso"
// @Param        body  body  dto.SendCommunicationRequest  true  "Mensaje"
// @Success      201   {object}  entity.CommunicationAttempt
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/cases/{id}/communications [post]
func (h *CaseHandler) SendCommunication(c *fiber.Ctx) error {
	var in dto.SendCommunicationRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	in.CollectionCaseID = c.Params("id")
	out, err := h.svc.SendCommunication(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// InboundReply godoc
// @Summary      Registrar respuesta del deudor
// @Tags         communications
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del caso"
// @Param        body  body  dto.InboundReplyRequest  true  "Respuesta recibida"
// @Success      201   {object}  dto.InboundReplyResponse
// @Router       /api/v1/cases/{id}/replies [post]
func (h *CaseHandler) InboundReply(c *fiber.Ctx) error {
	var in dto.InboundReplyRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	in.CollectionCaseID = c.Params("id")
	out, err := h.svc.RecordInboundReply(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// DeliveryReceipt godoc
// @Summary      Webhook de estado de entrega del proveedor
// @Tags         communications
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DeliveryReceiptRequest  true  "Estado informado"
// @Success      200   {object}  entity.CommunicationAttempt
// @Failure      404   {object}  dto.ErrorResponse  "external_id desconocido"
// @Router       /api/v1/communications/receipts [post]
func (h *CaseHandler) DeliveryReceipt(c *fiber.Ctx) error {
	var in dto.DeliveryReceiptRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.RecordDeliveryReceipt(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
