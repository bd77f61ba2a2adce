package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist-be/pkg/conversation"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/workflow"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"backend", &gateway.BackendError{Op: "x", Status: 500}, fiber.StatusBadGateway},
		{"in flight", conversation.ErrRequestInFlight, fiber.StatusConflict},
		{"transition", fmt.Errorf("wrap: %w", workflow.ErrInvalidTransition), fiber.StatusConflict},
		{"timeout", conversation.ErrInitiationTimeout, fiber.StatusGatewayTimeout},
		{"not found", docstore.ErrNotFound, fiber.StatusNotFound},
		{"fiber", fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{"other", io.ErrUnexpectedEOF, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := StatusOf(tt.err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestBackendErrorKeepsGenericMessage(t *testing.T) {
	_, msg := StatusOf(&gateway.BackendError{Op: "add-message", Status: 503, Err: io.EOF})
	assert.Equal(t, "something bad happened; please try again later", msg)
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/me", JwtMiddleware, func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("ok", CurrentUser(ctx)))
	})

	token, err := IssueToken(Identity{UID: "u1", DisplayName: "Ana", Email: "ana@example.com"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body Response[Identity]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "u1", body.Data.UID)
	assert.Equal(t, "Ana", body.Data.DisplayName)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := IssueToken(Identity{UID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Text string `validate:"required"`
	}
	err := ValidateRequest(req{})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.NoError(t, ValidateRequest(req{Text: "x"}))
}
