package controller

import (
	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/pkg/serverutils"
	"ai-context-engine/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	Remove(ctx *fiber.Ctx) error
	RemoveAllForOwner(ctx *fiber.Ctx) error
}

type documentController struct {
	ingestService service.IIngestService
	keyVerifier   serverutils.ServiceKeyVerifier
}

func NewDocumentController(ingestService service.IIngestService, keyVerifier serverutils.ServiceKeyVerifier) IDocumentController {
	return &documentController{
		ingestService: ingestService,
		keyVerifier:   keyVerifier,
	}
}

// RegisterRoutes mounts the internal ingestion API. These routes are for the
// corpus pipelines, not end users: service key auth, no JWT.
func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/internal/documents")
	h.Use(serverutils.ServiceKeyMiddleware(c.keyVerifier))
	h.Post("", c.Ingest)
	h.Delete(":sourceId", c.Remove)
	h.Delete("", c.RemoveAllForOwner)
}

func (c *documentController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.ingestService.Ingest(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Document queued for indexing", res))
}

func (c *documentController) Remove(ctx *fiber.Ctx) error {
	sourceId := ctx.Params("sourceId")
	if sourceId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing source id")
	}

	ownerId, err := uuid.Parse(ctx.Query("owner_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid owner_id")
	}

	if err := c.ingestService.Remove(ctx.Context(), ownerId, sourceId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Document removed", nil))
}

func (c *documentController) RemoveAllForOwner(ctx *fiber.Ctx) error {
	ownerId, err := uuid.Parse(ctx.Query("owner_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid owner_id")
	}

	if err := c.ingestService.RemoveAllForOwner(ctx.Context(), ownerId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Owner corpus removed", nil))
}
