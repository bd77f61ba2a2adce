package controller

import (
	"errors"
	"net/url"

	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
}

type oauthController struct {
	service   service.IOAuthService
	clientURL string
	logger    logger.ILogger
}

func NewOAuthController(service service.IOAuthService, clientURL string, log logger.ILogger) IOAuthController {
	return &oauthController{service: service, clientURL: clientURL, logger: log}
}

func (c *oauthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Get("/:provider", c.Login)
	h.Get("/:provider/callback", c.Callback)
}

func (c *oauthController) Login(ctx *fiber.Ctx) error {
	loginURL, err := c.service.GetLoginURL(ctx.Params("provider"))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedProvider) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}
	return ctx.Redirect(loginURL)
}

// Callback finishes the Google flow and hands the token to the storefront
// through the query string.
func (c *oauthController) Callback(ctx *fiber.Ctx) error {
	code := ctx.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing code")
	}

	res, err := c.service.HandleCallback(ctx.Context(), ctx.Params("provider"), code)
	if err != nil {
		c.logger.Error("OAUTH", "Callback failed", map[string]interface{}{"error": err.Error()})
		if errors.Is(err, service.ErrUnsupportedProvider) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusUnauthorized, "Login failed")
	}

	c.logger.Info("OAUTH", "User authenticated", map[string]interface{}{"user_id": res.User.UID})
	return ctx.Redirect(c.clientURL+"/auth?token="+url.QueryEscape(res.AccessToken), fiber.StatusTemporaryRedirect)
}
