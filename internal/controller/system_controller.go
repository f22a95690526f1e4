package controller

import (
	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/serverutils"
	"docchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type systemController struct {
	service service.ISystemLogService
}

func NewSystemController(service service.ISystemLogService) ISystemController {
	return &systemController{service: service}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/system/v1")
	h.Get("/logs", c.GetLogs)
	h.Get("/logs/:id", c.GetLogDetail)
}

func (c *systemController) GetLogs(ctx *fiber.Ctx) error {
	var req dto.ListLogsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	logs, err := c.service.GetLogs(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *systemController) GetLogDetail(ctx *fiber.Ctx) error {
	logId := ctx.Params("id") // Log ID is a string (MD5 hash), not UUID

	l, err := c.service.GetLogDetail(ctx.UserContext(), logId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", l))
}
