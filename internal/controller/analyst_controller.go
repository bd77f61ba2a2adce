package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxEventsPage = 50

type IAnalystController interface {
	RegisterRoutes(r fiber.Router)
}

type analystController struct {
	service service.IAnalystService
}

func NewAnalystController(service service.IAnalystService) IAnalystController {
	return &analystController{service: service}
}

func (c *analystController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/analyst/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("customers/:customerId", c.CustomerInfo)
	h.Post("insights", c.Insights)
	h.Post("search", c.Search)
	h.Post("similar", c.Similar)
	h.Get("events", c.RecentEvents)
}

func (c *analystController) CustomerInfo(ctx *fiber.Ctx) error {
	res, err := c.service.CustomerInfo(ctx.Context(), ctx.Params("customerId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get customer", res))
}

func (c *analystController) Insights(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.InsightsRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Insights(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get insights", res))
}

func (c *analystController) Search(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.KnowledgeSearchRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Search(ctx.Context(), userID(ctx), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}

func (c *analystController) Similar(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.SimilarRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Similar(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search similar", res))
}

func (c *analystController) RecentEvents(ctx *fiber.Ctx) error {
	res, err := c.service.RecentEvents(ctx.Context(), ctx.QueryInt("limit", maxEventsPage))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get events", res))
}
