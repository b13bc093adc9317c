package controller

import (
	"github.com/gofiber/fiber/v2"

	"oho-chat-gateway/internal/dto"
	"oho-chat-gateway/internal/pkg/serverutils"
	"oho-chat-gateway/internal/service"
)

type IChatController interface {
	RegisterRoutes(app *fiber.App)
	Chat(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	ClearSession(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(app *fiber.App) {
	// Root-level paths kept for drop-in compatibility with existing clients.
	app.Post("/chat", c.Chat)
	app.Get("/health", c.Health)

	// Session management for the bundled UIs.
	s := app.Group("/session")
	s.Post("", c.CreateSession)
	s.Get(":id/history", c.History)
	s.Delete(":id", c.ClearSession)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.Chat(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *chatController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{Status: "healthy"})
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.chatService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	res, err := c.chatService.History(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *chatController) ClearSession(ctx *fiber.Ctx) error {
	if err := c.chatService.ClearSession(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear session", nil))
}
