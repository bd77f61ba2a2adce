package serverutils

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"cymbal-assist-be/pkg/conversation"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/workflow"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrForbidden       = errors.New("forbidden")
)

// StatusOf maps a service error onto an HTTP status and the message shown to
// the browser. Backend failures keep their single generic message.
func StatusOf(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.Is(err, gateway.ErrBackend):
		return fiber.StatusBadGateway, gateway.ErrBackend.Error()
	case errors.Is(err, conversation.ErrRequestInFlight),
		errors.Is(err, workflow.ErrInvalidTransition):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, conversation.ErrInitiationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, err.Error()
	case errors.Is(err, conversation.ErrEmptyQuery),
		errors.Is(err, docstore.ErrInvalidPath),
		errors.Is(err, docstore.ErrInvalidRecord):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, docstore.ErrNotFound),
		errors.Is(err, ErrSessionNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden, err.Error()
	}
	return fiber.StatusInternalServerError, "internal server error"
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, msg := StatusOf(err)
		return ctx.Status(code).JSON(ErrorResponse(code, msg))
	}
}
