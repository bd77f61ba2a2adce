package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
}

type agentController struct {
	service service.IAgentChatService
}

func NewAgentController(service service.IAgentChatService) IAgentController {
	return &agentController{service: service}
}

func (c *agentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/agent/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("rephrase", c.Rephrase)
	h.Post("search", c.KnowledgeSearch)
	h.Delete("customers/:customerId/conversations", c.Clear)

	s := h.Group("sessions/:sid")
	s.Post("cases/watch", c.WatchCases)
	s.Post("cases/open", c.OpenCase)
	s.Post("cases/meeting", c.ScheduleMeeting)
	s.Get("cases/suggestion", c.AutoSuggest)
}

func (c *agentController) WatchCases(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.WatchCasesRequest](ctx)
	if err != nil {
		return err
	}
	if err := c.service.WatchCases(ctx.Context(), userID(ctx), ctx.Params("sid"), req.CustomerID); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Watching cases", nil))
}

func (c *agentController) OpenCase(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.OpenCaseRequest](ctx)
	if err != nil {
		return err
	}
	snap, err := c.service.OpenCase(ctx.Context(), userID(ctx), ctx.Params("sid"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Case opened", snap))
}

func (c *agentController) ScheduleMeeting(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.ScheduleMeetingRequest](ctx)
	if err != nil {
		return err
	}
	snap, err := c.service.ScheduleMeeting(ctx.Context(), userID(ctx), ctx.Params("sid"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Meeting scheduled", snap))
}

func (c *agentController) AutoSuggest(ctx *fiber.Ctx) error {
	text, err := c.service.AutoSuggest(ctx.Context(), userID(ctx), ctx.Params("sid"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get suggestion", dto.TextResponse{Text: text}))
}

func (c *agentController) Rephrase(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.TextRequest](ctx)
	if err != nil {
		return err
	}
	text, err := c.service.Rephrase(ctx.Context(), req.Text)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success rephrase", dto.TextResponse{Text: text}))
}

func (c *agentController) Clear(ctx *fiber.Ctx) error {
	if err := c.service.Clear(ctx.Context(), ctx.Params("customerId")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Conversations cleared", nil))
}

func (c *agentController) KnowledgeSearch(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.KnowledgeSearchRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.KnowledgeSearch(ctx.Context(), userID(ctx), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}
