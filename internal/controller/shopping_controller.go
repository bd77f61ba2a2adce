package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IShoppingController interface {
	RegisterRoutes(r fiber.Router)
}

type shoppingController struct {
	service service.IShoppingService
}

func NewShoppingController(service service.IShoppingService) IShoppingController {
	return &shoppingController{service: service}
}

func (c *shoppingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/shop/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("compare", c.Compare)
	h.Get("cart", c.Cart)
	h.Post("events", c.CollectEvent)

	s := h.Group("sessions/:sid")
	s.Get("products/:productId", c.Product)
	s.Post("cart", c.AddToCart)
	s.Delete("cart/:productId", c.RemoveFromCart)
	s.Post("checkout", c.Checkout)
	s.Post("recommendations", c.Recommend)
	s.Get("recommendations/home/:instance", c.Home)
	s.Get("recommendations/:page/:instance", c.Slots)
}

func (c *shoppingController) Product(ctx *fiber.Ctx) error {
	res, err := c.service.Product(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("productId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get product", res))
}

// Compare returns the backend's HTML table as is.
func (c *shoppingController) Compare(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.CompareRequest](ctx)
	if err != nil {
		return err
	}
	html, err := c.service.Compare(ctx.Context(), req)
	if err != nil {
		return err
	}
	ctx.Type("html")
	return ctx.SendString(html)
}

func (c *shoppingController) Cart(ctx *fiber.Ctx) error {
	res, err := c.service.Cart(ctx.Context(), userID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get cart", res))
}

func (c *shoppingController) AddToCart(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.CartItemRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.AddToCart(ctx.Context(), userID(ctx), ctx.Params("sid"), req.ProductID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Added to cart", res))
}

func (c *shoppingController) RemoveFromCart(ctx *fiber.Ctx) error {
	res, err := c.service.RemoveFromCart(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("productId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Removed from cart", res))
}

func (c *shoppingController) Checkout(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.CheckoutRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Checkout(ctx.Context(), serverutils.CurrentUser(ctx), ctx.Params("sid"), req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Order placed", res))
}

// Recommend starts a slot; its products arrive as recommendation frames.
func (c *shoppingController) Recommend(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.RecommendationRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.Recommend(ctx.Context(), userID(ctx), ctx.Params("sid"), req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Recommendations requested", res))
}

func (c *shoppingController) Home(ctx *fiber.Ctx) error {
	slots, err := c.service.Home(ctx.Context(), userID(ctx), ctx.Params("sid"), ctx.Params("instance"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get home recommendations", slots))
}

func (c *shoppingController) Slots(ctx *fiber.Ctx) error {
	slots, err := c.service.Slots(userID(ctx), ctx.Params("sid"), ctx.Params("page"), ctx.Params("instance"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get recommendations", slots))
}

func (c *shoppingController) CollectEvent(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.CollectEventRequest](ctx)
	if err != nil {
		return err
	}
	if err := c.service.CollectEvent(ctx.Context(), userID(ctx), req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Event collected", nil))
}
