package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IFieldController interface {
	RegisterRoutes(r fiber.Router)
}

type fieldController struct {
	service service.IFieldAgentService
}

func NewFieldController(service service.IFieldAgentService) IFieldController {
	return &fieldController{service: service}
}

func (c *fieldController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/field/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("activities", c.AddActivity)
	h.Post("activities/generate", c.GenerateActivity)
	h.Delete("activities/:id", c.DeleteActivity)
	h.Get("customers/:customerId", c.CustomerInfo)
	h.Post("insights", c.Insights)
	h.Post("visits", c.ScheduleVisit)
	h.Post("manuals/search", c.SearchManuals)

	s := h.Group("sessions/:sid")
	s.Post("activities/watch", c.WatchActivities)
	s.Put("activities/:id/status", c.SetActivityStatus)
}

func (c *fieldController) WatchActivities(ctx *fiber.Ctx) error {
	if err := c.service.WatchActivities(ctx.Context(), userID(ctx), ctx.Params("sid")); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Watching activities", nil))
}

func (c *fieldController) AddActivity(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.ActivityRequest](ctx)
	if err != nil {
		return err
	}
	if err := c.service.AddActivity(ctx.Context(), userID(ctx), req); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse[any]("Activity added", nil))
}

func (c *fieldController) SetActivityStatus(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.ActivityStatusRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.SetActivityStatus(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("id"), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Activity updated", res))
}

func (c *fieldController) DeleteActivity(ctx *fiber.Ctx) error {
	if err := c.service.DeleteActivity(ctx.Context(), userID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Activity deleted", nil))
}

func (c *fieldController) GenerateActivity(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.GenerateActivityRequest](ctx)
	if err != nil {
		return err
	}
	if err := c.service.GenerateActivity(ctx.Context(), userID(ctx), req); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Activity generation started", nil))
}

func (c *fieldController) CustomerInfo(ctx *fiber.Ctx) error {
	res, err := c.service.CustomerInfo(ctx.Context(), ctx.Params("customerId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get customer", res))
}

func (c *fieldController) Insights(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.InsightsRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Insights(ctx.Context(), req.Items)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get insights", res))
}

func (c *fieldController) ScheduleVisit(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.ScheduleVisitRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ScheduleVisit(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Visit scheduled", res))
}

func (c *fieldController) SearchManuals(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.TextRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.SearchManuals(ctx.Context(), userID(ctx), req.Text)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}
