// Package web exposes the engine over a local REST API: workflow and
// warm-up template management, batch runs and warm-up lifecycle control.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/emberflow/emberflow/pkg/actions"
	"github.com/emberflow/emberflow/pkg/models"
	"github.com/emberflow/emberflow/pkg/persistence"
	"github.com/emberflow/emberflow/pkg/warmup"
	"github.com/emberflow/emberflow/pkg/workflow"
)

type APIHandlers struct {
	persistence persistence.Persistence
	registry    *actions.Registry
	batch       *workflow.Batch
	scheduler   *warmup.Scheduler
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	registry *actions.Registry,
	batch *workflow.Batch,
	scheduler *warmup.Scheduler,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: store,
		registry:    registry,
		batch:       batch,
		scheduler:   scheduler,
		validator:   validate,
		logger:      logger,
	}
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Patch("/workflows/:id", h.UpdateWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)
	app.Get("/workflows/:id/executions", h.GetWorkflowExecutions)

	app.Get("/warmup-templates", h.GetWarmupTemplates)
	app.Post("/warmup-templates", h.CreateWarmupTemplate)
	app.Get("/warmup-templates/:id", h.GetWarmupTemplate)
	app.Delete("/warmup-templates/:id", h.DeleteWarmupTemplate)

	app.Post("/runs", h.StartRun)
	app.Get("/runs/active", h.GetActiveRuns)
	app.Delete("/runs/:id", h.CancelRun)
	app.Get("/executions/:id", h.GetExecution)

	app.Get("/warmups", h.GetWarmups)
	app.Post("/warmups", h.StartWarmup)
	app.Get("/warmups/:id", h.GetWarmup)
	app.Post("/warmups/:id/pause", h.PauseWarmup)
	app.Post("/warmups/:id/resume", h.ResumeWarmup)
	app.Post("/warmups/:id/stop", h.StopWarmup)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.persistence.Workflows().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf := &models.Workflow{
		Name:      req.Name,
		Variables: req.Variables,
		Steps:     req.Steps,
	}

	if err := h.registry.ValidateWorkflow(wf); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), wf); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.Workflows().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	if req.Steps != nil {
		existing.Steps = req.Steps
	}

	if err := h.registry.ValidateWorkflow(existing); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.Workflows().Delete(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	reports, err := h.persistence.Executions().ByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": reports})
}

func (h *APIHandlers) GetWarmupTemplates(c fiber.Ctx) error {
	templates, err := h.persistence.WarmupTemplates().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) GetWarmupTemplate(c fiber.Ctx) error {
	template, err := h.persistence.WarmupTemplates().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) CreateWarmupTemplate(c fiber.Ctx) error {
	var req CreateWarmupTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template := &models.WarmupTemplate{
		Name:      req.Name,
		Platform:  req.Platform,
		TotalDays: req.TotalDays,
		Phases:    req.Phases,
		Schedule:  req.Schedule,
	}

	if err := h.persistence.WarmupTemplates().Save(c.Context(), template); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *APIHandlers) DeleteWarmupTemplate(c fiber.Ctx) error {
	if err := h.persistence.WarmupTemplates().Delete(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// StartRun launches one workflow across the submitted profiles in the
// background and returns immediately; per-profile reports are persisted
// as they settle.
func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	var req StartRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := h.persistence.Workflows().ByID(c.Context(), req.WorkflowID)
	if err != nil {
		return handleError(c, err)
	}

	batchID := "batch-" + uuid.New().String()[:8]
	logger := h.logger.With("batch_id", batchID, "workflow_id", wf.ID)

	go func() {
		ctx := context.Background()
		report := h.batch.Run(ctx, wf, req.Profiles)

		for _, result := range report.Results {
			if err := h.persistence.Executions().Save(ctx, result); err != nil {
				logger.Error("Failed to persist execution report", "execution_id", result.ExecutionID, "error", err)
			}
		}

		logger.Info("Batch finished", "completed", report.Completed, "failed", report.Failed)
	}()

	return c.Status(fiber.StatusAccepted).JSON(StartRunResponse{
		BatchID:  batchID,
		Profiles: len(req.Profiles),
	})
}

func (h *APIHandlers) GetActiveRuns(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"active": h.batch.Active()})
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	if !h.batch.Cancel(c.Params("id")) {
		return notFound(c, "No in-flight execution with that ID")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	report, err := h.persistence.Executions().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) GetWarmups(c fiber.Ctx) error {
	records, err := h.persistence.WarmupProgress().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"warmups": records})
}

func (h *APIHandlers) GetWarmup(c fiber.Ctx) error {
	record, err := h.persistence.WarmupProgress().ByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(record)
}

// StartWarmup enrols a profile into a template; the scheduler picks the
// record up on its next poll.
func (h *APIHandlers) StartWarmup(c fiber.Ctx) error {
	var req StartWarmupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := h.persistence.WarmupTemplates().ByID(c.Context(), req.WarmupID); err != nil {
		return handleError(c, err)
	}

	record := warmup.NewProgress(req.WarmupID, req.ProfileID)
	if err := h.persistence.WarmupProgress().Save(c.Context(), record); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *APIHandlers) PauseWarmup(c fiber.Ctx) error {
	if err := h.scheduler.Pause(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ResumeWarmup(c fiber.Ctx) error {
	if err := h.scheduler.Resume(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) StopWarmup(c fiber.Ctx) error {
	if err := h.scheduler.Stop(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
