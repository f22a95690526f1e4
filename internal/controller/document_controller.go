package controller

import (
	"io"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/serverutils"
	"docchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
}

type documentController struct {
	ingestionService service.IIngestionService
	documentService  service.IDocumentService
}

func NewDocumentController(ingestionService service.IIngestionService, documentService service.IDocumentService) IDocumentController {
	return &documentController{
		ingestionService: ingestionService,
		documentService:  documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/document/v1")
	h.Post("/ingest", c.Ingest)
	h.Get("", c.GetAll)
	h.Get(":id", c.Show)
	h.Get(":id/progress", c.Progress)
}

func (c *documentController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid form body"))
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Missing file"))
	}
	if req.Title == "" {
		req.Title = fileHeader.Filename
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	res, err := c.ingestionService.Ingest(ctx.UserContext(), req.Title, fileHeader.Filename, content)
	if err != nil {
		return err
	}

	status := fiber.StatusCreated
	if res.Status != "READY" {
		status = fiber.StatusAccepted
	}
	return ctx.Status(status).JSON(serverutils.SuccessResponse("Document ingested", res))
}

func (c *documentController) GetAll(ctx *fiber.Ctx) error {
	var req dto.ListDocumentsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.List(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid document id"))
	}

	res, err := c.documentService.Show(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show document", res))
}

func (c *documentController) Progress(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid document id"))
	}

	res, err := c.documentService.Progress(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document progress", res))
}
