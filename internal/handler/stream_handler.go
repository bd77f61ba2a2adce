package handler

import (
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/serverutils"
	internalWS "cymbal-assist-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// StreamHandler upgrades a user's connection and attaches it to the hub,
// which then pushes every frame of the user's sessions to it.
type StreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewStreamHandler(hub *internalWS.Hub, log logger.ILogger) *StreamHandler {
	return &StreamHandler{hub: hub, logger: log}
}

func (h *StreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

// ServeWs authenticates the upgrade with the same token as the REST API,
// taken from the "token" query parameter or the Authorization header.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	id, err := serverutils.ParseToken(tokenStr)
	if err != nil {
		h.logger.Warn("StreamHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{"user_id": id.UID})
		internalWS.ServeWs(h.hub, conn, id.UID)
		h.logger.Info("StreamHandler", "WebSocket session ended", map[string]interface{}{"user_id": id.UID})
	})(c)
}
