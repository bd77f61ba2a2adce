package controller

import (
	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"
	"cymbal-assist-be/pkg/catalog"

	"github.com/gofiber/fiber/v2"
)

type ICreatorController interface {
	RegisterRoutes(r fiber.Router)
}

type creatorController struct {
	service service.ICreatorService
}

func NewCreatorController(service service.ICreatorService) ICreatorController {
	return &creatorController{service: service}
}

func (c *creatorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/creator/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("images", c.UploadImage)
	h.Post("images/generate", c.GenerateImage)
	h.Post("images/edit", c.EditImage)
	h.Post("categories", c.DetectCategories)
	h.Post("title-description", c.TitleDescription)

	h.Post("products", c.SaveProduct)
	h.Put("products/:id", c.UpdateProduct)
	h.Delete("products/:id", c.DeleteProduct)
	h.Post("services", c.SaveService)
	h.Put("services/:id", c.UpdateService)
	h.Delete("services/:id", c.DeleteService)

	h.Post("sessions/:sid/watch", c.WatchCatalog)
}

func (c *creatorController) UploadImage(ctx *fiber.Ctx) error {
	file, err := formFile(ctx, "image")
	if err != nil {
		return err
	}
	if file == nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	res, err := c.service.UploadImage(ctx.Context(), file)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Image uploaded", res))
}

func (c *creatorController) GenerateImage(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.GenerateImageRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GenerateImage(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Images generated", res))
}

func (c *creatorController) EditImage(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.EditImageRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.EditImage(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Image edited", res))
}

func (c *creatorController) DetectCategories(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.DetectCategoriesRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.DetectCategories(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Categories detected", res))
}

func (c *creatorController) TitleDescription(ctx *fiber.Ctx) error {
	req, err := parseBody[dto.TitleDescriptionRequest](ctx)
	if err != nil {
		return err
	}
	res, err := c.service.TitleDescription(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Title and description generated", res))
}

func (c *creatorController) WatchCatalog(ctx *fiber.Ctx) error {
	if err := c.service.WatchCatalog(ctx.Context(), userID(ctx), ctx.Params("sid")); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Watching catalog", nil))
}

func (c *creatorController) SaveProduct(ctx *fiber.Ctx) error {
	req, err := parseBody[catalog.Draft](ctx)
	if err != nil {
		return err
	}
	if err := c.service.SaveProduct(ctx.Context(), userID(ctx), req); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse[any]("Product saved", nil))
}

func (c *creatorController) UpdateProduct(ctx *fiber.Ctx) error {
	req, err := parseBody[catalog.Draft](ctx)
	if err != nil {
		return err
	}
	if err := c.service.UpdateProduct(ctx.Context(), userID(ctx), ctx.Params("id"), req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Product updated", nil))
}

func (c *creatorController) DeleteProduct(ctx *fiber.Ctx) error {
	if err := c.service.DeleteProduct(ctx.Context(), userID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Product deleted", nil))
}

func (c *creatorController) SaveService(ctx *fiber.Ctx) error {
	req, err := parseBody[catalog.Service](ctx)
	if err != nil {
		return err
	}
	if err := c.service.SaveService(ctx.Context(), userID(ctx), req); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse[any]("Service saved", nil))
}

func (c *creatorController) UpdateService(ctx *fiber.Ctx) error {
	req, err := parseBody[catalog.Service](ctx)
	if err != nil {
		return err
	}
	if err := c.service.UpdateService(ctx.Context(), userID(ctx), ctx.Params("id"), req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Service updated", nil))
}

func (c *creatorController) DeleteService(ctx *fiber.Ctx) error {
	if err := c.service.DeleteService(ctx.Context(), userID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Service deleted", nil))
}
