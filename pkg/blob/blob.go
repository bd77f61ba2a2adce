// Package blob stores user uploads (query images, return evidence) under a
// fresh uuid name. The stored path is what the backend is later given.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	ImagesPrefix       = "images"
	ReturnImagesPrefix = "return-images"
	ReturnVideosPrefix = "return-videos"
)

var ErrEmptyUpload = errors.New("empty upload")

// Object identifies a stored upload. Name is the bare uuid, Path includes
// the prefix ("images/<uuid>").
type Object struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type Storage interface {
	Upload(ctx context.Context, prefix, contentType string, r io.Reader) (Object, error)
	URL(ctx context.Context, objectPath string) (string, error)
}

func newObject(prefix string) Object {
	name := uuid.NewString()
	return Object{Name: name, Path: path.Join(strings.Trim(prefix, "/"), name)}
}
