package controller

import (
	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/pkg/serverutils"
	"ai-context-engine/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAccountController interface {
	RegisterRoutes(r fiber.Router)
	UpsertAccount(ctx *fiber.Ctx) error
	GetAccounts(ctx *fiber.Ctx) error
}

type accountController struct {
	accountService service.IAccountService
}

func NewAccountController(accountService service.IAccountService) IAccountController {
	return &accountController{
		accountService: accountService,
	}
}

func (c *accountController) RegisterRoutes(r fiber.Router) {
	// The identity layer pushes provider tokens here after OAuth consent.
	internal := r.Group("/internal/accounts")
	internal.Use(serverutils.ServiceKeyMiddleware(c.accountService))
	internal.Put("", c.UpsertAccount)

	h := r.Group("/api/v1/accounts")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.GetAccounts)
}

func (c *accountController) UpsertAccount(ctx *fiber.Ctx) error {
	var req dto.UpsertAccountRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.accountService.UpsertAccount(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Account linked", res))
}

func (c *accountController) GetAccounts(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.accountService.GetAccounts(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get accounts", res))
}
