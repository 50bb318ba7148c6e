package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/dto"
)

// InvoiceHandler facturas, cuotas, pagos y promesas.
type InvoiceHandler struct {
	svc *collections.Service
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc *collections.Service) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// Create godoc
// @Summary      Registrar factura
// @Description  Crea la factura con su plan de cuotas opcional. Con open_case=true abre el caso de cobranza.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateInvoiceRequest  true  "Factura"
// @Success      201   {object}  dto.InvoiceDetailResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/invoices [post]
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.CreateInvoice(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener factura con cuotas, pagos y seguimiento
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetInvoice(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Tracking godoc
// @Summary      Seguimiento derivado de la factura a la fecha
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceTrackingDTO
// @Router       /api/v1/invoices/{id}/tracking [get]
func (h *InvoiceHandler) Tracking(c *fiber.Ctx) error {
	out, err := h.svc.GetInvoiceTracking(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar facturas
// @Tags         invoices
// @Produce      json
// @Param        customer_company_id  query  string  false  "Empresa cliente"
// @Param        status               query  string  false  "Estados separados por coma"
// @Param        limit                query  int     false  "Límite"  default(20)
// @Param        offset               query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ListResponse[entity.Invoice]
// @Router       /api/v1/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var in dto.ListInvoicesRequest
	if ok, err := bindQuery(c, &in); !ok {
		return err
	}
	in.DefaultPage()
	list, err := h.svc.ListInvoices(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(list, in.PageRequest))
}

// Issue godoc
// @Summary      Emitir factura en borrador
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceDetailResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/v1/invoices/{id}/issue [post]
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	out, err := h.svc.IssueInvoice(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Anular factura
// @Description  Cierra el caso de cobranza abierto, si lo hay.
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceDetailResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/v1/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.svc.CancelInvoice(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RecordPayment godoc
// @Summary      Registrar pago
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la factura"
// @Param        body  body  dto.RecordPaymentRequest  true  "Pago"
// @Success      201   {object}  dto.InvoiceDetailResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *fiber.Ctx) error {
	var in dto.RecordPaymentRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.RecordPayment(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdatePaymentStatus godoc
// @Summary      Cambiar estado de un pago
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "ID del pago"
// @Param        body  body  dto.UpdatePaymentStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.InvoiceDetailResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/payments/{id}/status [patch]
func (h *InvoiceHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	var in dto.UpdatePaymentStatusRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.UpdatePaymentStatus(c.UserContext(), repoContext(c), c.Params("id"), in.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetExpectedPaymentDate godoc
// @Summary      Fijar o limpiar la fecha esperada de pago
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string                             true  "ID de la factura"
// @Param        body  body  dto.SetExpectedPaymentDateRequest  true  "Fecha (null la limpia)"
// @Success      200   {object}  dto.InvoiceDetailResponse
// @Router       /api/v1/invoices/{id}/expected-payment-date [put]
func (h *InvoiceHandler) SetExpectedPaymentDate(c *fiber.Ctx) error {
	var in dto.SetExpectedPaymentDateRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.SetExpectedPaymentDate(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RegisterPromise godoc
// @Summary      Registrar promesa de pago
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string                             true  "ID de la factura"
// @Param        body  body  dto.RegisterPaymentPromiseRequest  true  "Promesa"
// @Success      200   {object}  dto.InvoiceDetailResponse
// @Router       /api/v1/invoices/{id}/promises [post]
func (h *InvoiceHandler) RegisterPromise(c *fiber.Ctx) error {
	var in dto.RegisterPaymentPromiseRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.RegisterPaymentPromise(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Recompute godoc
// @Summary      Recalcular estado derivado de la factura
// @Tags         invoices
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  collections.RecomputeResult
// @Router       /api/v1/invoices/{id}/recompute [post]
func (h *InvoiceHandler) Recompute(c *fiber.Ctx) error {
	out, err := h.svc.RecomputeInvoiceStatus(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
