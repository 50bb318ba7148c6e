package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emiliofantozzi/cobra/internal/application/collections"
)

// Roles reconocidos en el claim "role" del token.
const (
	RoleAdmin     = "admin"
	RoleCollector = "cobrador"
	RoleSystem    = "system"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Service   *collections.Service
	Sweeper   *collections.Sweeper // opcional: sin él no se expone el disparo manual del barrido
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Todo /api/v1 requiere Bearer Token: el tenant sale del claim organization_id.
	api := app.Group("/api/v1", AuthMiddleware(deps.JWTSecret))

	companyHandler := NewCompanyHandler(deps.Service)
	companies := api.Group("/customer-companies")
	companies.Post("/", companyHandler.Create)
	companies.Get("/", companyHandler.List)
	companies.Get("/:id", companyHandler.GetByID)
	companies.Patch("/:id", companyHandler.Update)
	companies.Patch("/:id/status", companyHandler.SetStatus)
	companies.Post("/:id/contacts", companyHandler.CreateContact)
	companies.Get("/:id/statement", companyHandler.Statement)

	contacts := api.Group("/contacts")
	contacts.Patch("/:id", companyHandler.UpdateContact)
	contacts.Post("/:id/opt-out", companyHandler.OptOut)

	invoiceHandler := NewInvoiceHandler(deps.Service)
	invoices := api.Group("/invoices")
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Get("/:id/tracking", invoiceHandler.Tracking)
	invoices.Post("/:id/issue", invoiceHandler.Issue)
	invoices.Post("/:id/cancel", RequireRole(RoleAdmin, RoleCollector), invoiceHandler.Cancel)
	invoices.Post("/:id/payments", invoiceHandler.RecordPayment)
	invoices.Put("/:id/expected-payment-date", invoiceHandler.SetExpectedPaymentDate)
	invoices.Post("/:id/promises", invoiceHandler.RegisterPromise)
	invoices.Post("/:id/recompute", invoiceHandler.Recompute)

	api.Patch("/payments/:id/status", invoiceHandler.UpdatePaymentStatus)

	caseHandler := NewCaseHandler(deps.Service)
	agentHandler := NewAgentHandler(deps.Service)
	cases := api.Group("/cases")
	cases.Post("/", caseHandler.Open)
	cases.Get("/due", caseHandler.Due)
	cases.Get("/:id", caseHandler.GetByID)
	cases.Post("/:id/stage", caseHandler.TransitionStage)
	cases.Patch("/:id/status", caseHandler.SetStatus)
	cases.Post("/:id/communications", caseHandler.SendCommunication)
	cases.Post("/:id/replies", caseHandler.InboundReply)
	cases.Post("/:id/agent-runs", agentHandler.StartRun)
	cases.Get("/:id/agent-runs", agentHandler.ListRuns)

	api.Post("/communications/receipts", caseHandler.DeliveryReceipt)

	runs := api.Group("/agent-runs")
	runs.Get("/:id", agentHandler.Timeline)
	runs.Post("/:id/actions", agentHandler.RecordAction)
	runs.Post("/:id/finalize", agentHandler.FinalizeRun)
	api.Patch("/agent-actions/:id/status", agentHandler.UpdateActionStatus)

	api.Get("/agent-config", agentHandler.GetConfig)
	api.Patch("/agent-config", RequireRole(RoleAdmin), agentHandler.PatchConfig)

	if deps.Sweeper != nil {
		sweepHandler := NewSweepHandler(deps.Sweeper)
		api.Post("/sweeps", RequireRole(RoleSystem), sweepHandler.Run)
	}
}
