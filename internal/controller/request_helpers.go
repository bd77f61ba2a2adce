package controller

import (
	"bytes"
	"io"
	"mime/multipart"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/internal/service"
	"cymbal-assist-be/pkg/conversation"

	"github.com/gofiber/fiber/v2"
)

func userID(ctx *fiber.Ctx) string {
	return ctx.Locals("user_id").(string)
}

// parseBody binds and validates a JSON (or form) body.
func parseBody[T any](ctx *fiber.Ctx) (*T, error) {
	var req T
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// formFile returns the named multipart file read into memory, or nil when
// the request carries none.
func formFile(ctx *fiber.Ctx, name string) (*service.Upload, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, nil
	}
	files := form.File[name]
	if len(files) == 0 {
		return nil, nil
	}
	data, err := readFile(files[0])
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "unreadable "+name)
	}
	return &service.Upload{
		ContentType: files[0].Header.Get("Content-Type"),
		Body:        bytes.NewReader(data),
	}, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseQuery reads a conversation query: "text" and "restart" as JSON or
// form fields, plus an optional "image" file.
func parseQuery(ctx *fiber.Ctx) (conversation.Query, bool, error) {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return conversation.Query{}, false, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q := conversation.Query{Text: req.Text}

	form, err := ctx.MultipartForm()
	if err == nil && len(form.File["image"]) > 0 {
		fh := form.File["image"][0]
		data, err := readFile(fh)
		if err != nil {
			return q, false, fiber.NewError(fiber.StatusBadRequest, "unreadable image")
		}
		q.Image = &conversation.Attachment{ContentType: fh.Header.Get("Content-Type"), Data: data}
	}
	return q, req.Restart, nil
}
