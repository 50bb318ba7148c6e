package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/dto"
)

// CompanyHandler empresas cliente, sus contactos y el estado de cuenta.
type CompanyHandler struct {
	svc *collections.Service
}

// NewCompanyHandler construye el handler inyectando la fachada de cobranza.
func NewCompanyHandler(svc *collections.Service) *CompanyHandler {
	return &CompanyHandler{svc: svc}
}

// Create godoc
// @Summary      Crear empresa cliente
// @Tags         customer-companies
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCustomerCompanyRequest  true  "Datos de la empresa"
// @Success      201   {object}  entity.CustomerCompany
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/customer-companies [post]
func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCustomerCompanyRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.CreateCustomerCompany(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener empresa cliente con sus contactos
// @Tags         customer-companies
// @Produce      json
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.CustomerCompanyDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/customer-companies/{id} [get]
func (h *CompanyHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.GetCustomerCompany(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar empresas cliente
// @Tags         customer-companies
// @Produce      json
// @Param        status  query  string  false  "ACTIVE | INACTIVE | ARCHIVED"
// @Param        q       query  string  false  "Búsqueda por nombre, razón social o NIT"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.ListResponse[entity.CustomerCompany]
// @Router       /api/v1/customer-companies [get]
func (h *CompanyHandler) List(c *fiber.Ctx) error {
	var in dto.ListCustomerCompaniesRequest
	if ok, err := bindQuery(c, &in); !ok {
		return err
	}
	in.DefaultPage()
	list, err := h.svc.ListCustomerCompanies(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(list, in.PageRequest))
}

// Update godoc
// @Summary      Actualizar empresa cliente
// @Tags         customer-companies
// @Accept       json
// @Produce      json
// @Param        id    path  string                            true  "ID de la empresa"
// @Param        body  body  dto.UpdateCustomerCompanyRequest  true  "Campos a modificar"
// @Success      200   {object}  entity.CustomerCompany
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/v1/customer-companies/{id} [patch]
func (h *CompanyHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateCustomerCompanyRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.UpdateCustomerCompany(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SetStatus godoc
// @Summary      Cambiar estado de la empresa (ACTIVE, INACTIVE, ARCHIVED)
// @Tags         customer-companies
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID de la empresa"
// @Param        body  body  dto.SetStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  entity.CustomerCompany
// @Router       /api/v1/customer-companies/{id}/status [patch]
func (h *CompanyHandler) SetStatus(c *fiber.Ctx) error {
	var in dto.SetStatusRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.SetCustomerCompanyStatus(c.UserContext(), repoContext(c), c.Params("id"), in.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CreateContact godoc
// @Summary      Agregar contacto a la empresa
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la empresa"
// @Param        body  body  dto.CreateContactRequest  true  "Datos del contacto"
// @Success      201   {object}  entity.Contact
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/customer-companies/{id}/contacts [post]
func (h *CompanyHandler) CreateContact(c *fiber.Ctx) error {
	var in dto.CreateContactRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	in.CustomerCompanyID = c.Params("id")
	out, err := h.svc.CreateContact(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateContact godoc
// @Summary      Actualizar contacto
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del contacto"
// @Param        body  body  dto.UpdateContactRequest  true  "Campos a modificar"
// @Success      200   {object}  entity.Contact
// @Router       /api/v1/contacts/{id} [patch]
func (h *CompanyHandler) UpdateContact(c *fiber.Ctx) error {
	var in dto.UpdateContactRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.UpdateContact(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// OptOut godoc
// @Summary      Registrar baja de un canal del contacto
// @Tags         contacts
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del contacto"
// @Param        body  body  dto.OptOutRequest  true  "Canal"
// @Success      200   {object}  entity.Contact
// @Router       /api/v1/contacts/{id}/opt-out [post]
func (h *CompanyHandler) OptOut(c *fiber.Ctx) error {
	var in dto.OptOutRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.OptOutContact(c.UserContext(), repoContext(c), c.Params("id"), in.Channel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Statement godoc
// @Summary      Descargar estado de cuenta en PDF
// @Tags         customer-companies
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/v1/customer-companies/{id}/statement [get]
func (h *CompanyHandler) Statement(c *fiber.Ctx) error {
	att, err := h.svc.RenderCustomerStatement(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, att.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+att.Filename+`"`)
	return c.Send(att.Data)
}
