package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Open(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
	SetDisplay(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Snapshot(ctx *fiber.Ctx) error
	SetLanguage(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessions      service.ISessionService
	conversations service.IConversationService
}

func NewSessionController(sessions service.ISessionService, conversations service.IConversationService) ISessionController {
	return &sessionController{sessions: sessions, conversations: conversations}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Open)
	h.Delete(":sid", c.Close)
	h.Put(":sid/display", c.SetDisplay)
	h.Get(":sid/conversations/:key", c.Snapshot)
	h.Post(":sid/conversations/:key/messages", c.Send)
	h.Put(":sid/conversations/:key/language", c.SetLanguage)
	h.Post(":sid/conversations/:key/end", c.End)
}

func (c *sessionController) Open(ctx *fiber.Ctx) error {
	res, err := c.sessions.Open(ctx.Context(), userID(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session opened", res))
}

func (c *sessionController) Close(ctx *fiber.Ctx) error {
	if err := c.sessions.Close(userID(ctx), ctx.Params("sid")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session closed", nil))
}

func (c *sessionController) SetDisplay(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.DisplayRequest](ctx)
	if err != nil {
		return err
	}
	if err := c.sessions.SetDisplay(userID(ctx), ctx.Params("sid"), req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Display updated", nil))
}

// Send accepts JSON or multipart; an "image" file makes it an image query.
func (c *sessionController) Send(ctx *fiber.Ctx) error {
	q, restart, err := parseQuery(ctx)
	if err != nil {
		return err
	}
	snap, err := c.conversations.Send(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("key"), q, restart)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", snap))
}

func (c *sessionController) Snapshot(ctx *fiber.Ctx) error {
	snap, err := c.conversations.Snapshot(userID(ctx), ctx.Params("sid"), ctx.Params("key"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", snap))
}

func (c *sessionController) SetLanguage(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.SetLanguageRequest](ctx)
	if err != nil {
		return err
	}
	snap, err := c.conversations.SetLanguage(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("key"), req.Language)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Language changed", snap))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	if err := c.conversations.End(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("key")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Conversation ended", nil))
}
