package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
	"github.com/emiliofantozzi/cobra/internal/application/dto"
	"github.com/emiliofantozzi/cobra/internal/domain/entity"
)

// AgentHandler ejecuciones del agente, su bitácora de acciones y la configuración por organización.
type AgentHandler struct {
	svc *collections.Service
}

// NewAgentHandler construye el handler.
func NewAgentHandler(svc *collections.Service) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// StartRun godoc
// @Summary      Iniciar ejecución del agente sobre un caso
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del caso"
// @Param        body  body  dto.StartAgentRunRequest  false "Metadatos"
// @Success      201   {object}  entity.AgentRun
// @Router       /api/v1/cases/{id}/agent-runs [post]
func (h *AgentHandler) StartRun(c *fiber.Ctx) error {
	var in dto.StartAgentRunRequest
	if len(c.Body()) > 0 {
		if ok, err := bindBody(c, &in); !ok {
			return err
		}
	}
	in.CollectionCaseID = c.Params("id")
	out, err := h.svc.StartAgentRun(c.UserContext(), repoContext(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListRuns godoc
// @Summary      Ejecuciones del agente de un caso
// @Tags         agent
// @Produce      json
// @Param        id   path  string  true  "ID del caso"
// @Success      200  {array}  entity.AgentRun
// @Router       /api/v1/cases/{id}/agent-runs [get]
func (h *AgentHandler) ListRuns(c *fiber.Ctx) error {
	out, err := h.svc.ListAgentRuns(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		out = []*entity.AgentRun{}
	}
	return c.JSON(out)
}

// Timeline godoc
// @Summary      Ejecución con sus acciones en orden
// @Tags         agent
// @Produce      json
// @Param        id   path  string  true  "ID de la ejecución"
// @Success      200  {object}  dto.AgentRunTimelineResponse
// @Router       /api/v1/agent-runs/{id} [get]
func (h *AgentHandler) Timeline(c *fiber.Ctx) error {
	out, err := h.svc.GetAgentRunTimeline(c.UserContext(), repoContext(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// RecordAction godoc
// @Summary      Registrar acción del agente
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la ejecución"
// @Param        body  body  dto.RecordAgentActionRequest  true  "Acción"
// @Success      201   {object}  entity.AgentActionLog
// @Failure      409   {object}  dto.ErrorResponse  "la ejecución ya terminó"
// @Router       /api/v1/agent-runs/{id}/actions [post]
func (h *AgentHandler) RecordAction(c *fiber.Ctx) error {
	var in dto.RecordAgentActionRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.RecordAgentAction(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateActionStatus godoc
// @Summary      Cambiar estado de una acción
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        id    path  string                              true  "ID de la acción"
// @Param        body  body  dto.UpdateAgentActionStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  entity.AgentActionLog
// @Router       /api/v1/agent-actions/{id}/status [patch]
func (h *AgentHandler) UpdateActionStatus(c *fiber.Ctx) error {
	var in dto.UpdateAgentActionStatusRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.UpdateAgentActionStatus(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// FinalizeRun godoc
// @Summary      Finalizar ejecución
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la ejecución"
// @Param        body  body  dto.FinalizeAgentRunRequest  true  "Estado final"
// @Success      200   {object}  entity.AgentRun
// @Router       /api/v1/agent-runs/{id}/finalize [post]
func (h *AgentHandler) FinalizeRun(c *fiber.Ctx) error {
	var in dto.FinalizeAgentRunRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.svc.FinalizeAgentRun(c.UserContext(), repoContext(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetConfig godoc
// @Summary      Configuración del agente de la organización
// @Tags         agent
// @Produce      json
// @Success      200  {object}  entity.AgentConfig
// @Router       /api/v1/agent-config [get]
func (h *AgentHandler) GetConfig(c *fiber.Ctx) error {
	out, err := h.svc.GetAgentConfig(c.UserContext(), repoContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// PatchConfig godoc
// @Summary      Actualizar configuración del agente (merge)
// @Description  Solo los campos presentes se aplican; null limpia el valor.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        body  body  entity.AgentConfigPatch  true  "Parche"
// @Success      200   {object}  entity.AgentConfig
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/v1/agent-config [patch]
func (h *AgentHandler) PatchConfig(c *fiber.Ctx) error {
	var patch entity.AgentConfigPatch
	// JSON crudo: Optional[T] distingue campo ausente de null.
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.PatchAgentConfig(c.UserContext(), repoContext(c), patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
