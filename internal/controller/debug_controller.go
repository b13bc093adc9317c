package controller

import (
	"github.com/gofiber/fiber/v2"

	"oho-chat-gateway/internal/pkg/logger"
	"oho-chat-gateway/internal/pkg/serverutils"
	"oho-chat-gateway/internal/service"
)

// IDebugController exposes the opt-in diagnostic surface: per-session
// tweaks and raw engine responses, plus a window into the log file.
// Nothing here is sent to end users unless they ask for it.
type IDebugController interface {
	RegisterRoutes(app *fiber.App)
	Session(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
}

type debugController struct {
	chatService service.IChatService
	sysLogger   logger.ILogger
}

func NewDebugController(chatService service.IChatService, sysLogger logger.ILogger) IDebugController {
	return &debugController{
		chatService: chatService,
		sysLogger:   sysLogger,
	}
}

func (c *debugController) RegisterRoutes(app *fiber.App) {
	d := app.Group("/debug")
	d.Get("/session/:id", c.Session)
	d.Get("/logs", c.Logs)
}

func (c *debugController) Session(ctx *fiber.Ctx) error {
	res, err := c.chatService.Debug(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session debug state", res))
}

func (c *debugController) Logs(ctx *fiber.Ctx) error {
	level := ctx.Query("level", "")
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	entries, err := c.sysLogger.GetLogs(level, limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", entries))
}
