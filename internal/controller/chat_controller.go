package controller

import (
	"bufio"
	"encoding/json"

	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/pkg/serverutils"
	"ai-context-engine/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const errSessionDenied = "session not found or access denied"

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	StreamChat(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	stream := r.Group("/v2/chat")
	stream.Use(serverutils.JwtMiddleware)
	stream.Post("", c.StreamChat)

	h := r.Group("/api/v1/sessions")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.CreateSession)
	h.Get("", c.GetAllSessions)
	h.Get(":id/history", c.GetChatHistory)
	h.Delete(":id", c.DeleteSession)
}

// StreamChat answers one message as an NDJSON stream: an ack line as soon as
// the path is known, then exactly one response or error line.
func (c *chatController) StreamChat(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.StreamChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx.Set(fiber.HeaderContentType, "application/x-ndjson")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")

	// The stream writer runs after this handler returns; only the fasthttp
	// ctx (which doubles as the request's context.Context) may be captured.
	reqCtx := ctx.Context()
	chatService := c.chatService

	reqCtx.SetBodyStreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		emit := func(event *dto.StreamEvent) {
			if err := enc.Encode(event); err != nil {
				return
			}
			w.Flush() // one line per event, delivered immediately
		}

		if err := chatService.StreamChat(reqCtx, userId, &req, emit); err != nil {
			message := "Something went wrong. Please try again."
			if err.Error() == errSessionDenied {
				message = errSessionDenied
			}
			emit(&dto.StreamEvent{Type: "error", Message: message})
		}
	})

	return nil
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.chatService.CreateSession(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatService.GetAllSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		if err.Error() == errSessionDenied {
			return fiber.NewError(fiber.StatusNotFound, errSessionDenied)
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	if err := c.chatService.DeleteSession(ctx.Context(), userId, sessionId); err != nil {
		if err.Error() == errSessionDenied {
			return fiber.NewError(fiber.StatusNotFound, errSessionDenied)
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}
