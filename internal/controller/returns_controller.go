package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IReturnsController interface {
	RegisterRoutes(r fiber.Router)
}

type returnsController struct {
	service service.IReturnsService
}

func NewReturnsController(service service.IReturnsService) IReturnsController {
	return &returnsController{service: service}
}

func (c *returnsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/returns/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("orders/:orderId", c.Order)
	h.Post("orders/:orderId/items/:productId/decision", c.Decide)
	h.Post("orders/:orderId/items/:productId/exchange", c.CompleteExchange)
	h.Post("similar", c.Similar)
	h.Post("sessions/:sid/orders/:orderId/items/:productId", c.SubmitReturn)
}

func (c *returnsController) Order(ctx *fiber.Ctx) error {
	res, err := c.service.Order(ctx.Context(), userID(ctx), ctx.Params("orderId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get order", res))
}

// SubmitReturn takes multipart "image" and/or "video" evidence.
func (c *returnsController) SubmitReturn(ctx *fiber.Ctx) error {
	image, err := formFile(ctx, "image")
	if err != nil {
		return err
	}
	video, err := formFile(ctx, "video")
	if err != nil {
		return err
	}
	res, err := c.service.SubmitReturn(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("orderId"), ctx.Params("productId"), image, video)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Return submitted", res))
}

func (c *returnsController) Decide(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.ReturnDecisionRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Decide(ctx.Context(), userID(ctx), ctx.Params("orderId"), ctx.Params("productId"), req.Accept)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Return decided", res))
}

func (c *returnsController) CompleteExchange(ctx *fiber.Ctx) error {
	res, err := c.service.CompleteExchange(ctx.Context(), userID(ctx), ctx.Params("orderId"), ctx.Params("productId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Exchange completed", res))
}

func (c *returnsController) Similar(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.SimilarItemsRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Similar(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search similar", res))
}
