package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes mounts the workflow API on the app.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Post("/import", handlers.ImportWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)
	w.Post("/:id/pause", handlers.PauseWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Get("/:id/runs", handlers.GetWorkflowRuns)
	w.Get("/:id/export", handlers.ExportWorkflow)

	app.Get("/runs/:id", handlers.GetRun)
	app.Get("/health", handlers.HealthCheck)
}
