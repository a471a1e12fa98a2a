package controller

import (
	"ai-notebook-companion/internal/pkg/serverutils"
	"ai-notebook-companion/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEmbeddingController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	EnqueueNotebook(ctx *fiber.Ctx) error
	StartSweep(ctx *fiber.Ctx) error
	GetJob(ctx *fiber.Ctx) error
}

type embeddingController struct {
	maintenanceService service.IEmbeddingMaintenanceService
}

func NewEmbeddingController(maintenanceService service.IEmbeddingMaintenanceService) IEmbeddingController {
	return &embeddingController{maintenanceService: maintenanceService}
}

func (c *embeddingController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/embedding/v1")
	h.Use(auth)
	h.Post("notebooks/:id", c.EnqueueNotebook)
	h.Post("sweeps", c.StartSweep)
	h.Get("jobs/:id", c.GetJob)
}

func (c *embeddingController) EnqueueNotebook(ctx *fiber.Ctx) error {
	userId, notebookId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.maintenanceService.EnqueueNotebook(ctx.UserContext(), userId, notebookId)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Embedding queued", res))
}

// StartSweep only covers the caller's notebooks; global sweeps run from cmd/backfill.
func (c *embeddingController) StartSweep(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.maintenanceService.StartSweep(ctx.UserContext(), &userId)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Sweep accepted", res))
}

func (c *embeddingController) GetJob(ctx *fiber.Ctx) error {
	userId, jobId, err := ownerAndID(ctx)
	if err != nil {
		return err
	}

	res, err := c.maintenanceService.GetJob(ctx.UserContext(), userId, jobId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get job", res))
}
