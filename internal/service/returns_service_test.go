package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/internal/pkg/serverutils"
	"cymbal-assist-be/pkg/blob"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/gateway"
	"cymbal-assist-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type returnsBackend struct {
	mu       sync.Mutex
	requests []gateway.ReturnValidationRequest
	updated  []catalog.Order
	store    docstore.Store
}

func (b *returnsBackend) ReturnValidation(_ context.Context, req gateway.ReturnValidationRequest) (gateway.ReturnValidationResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	return gateway.ReturnValidationResponse{Valid: true, ReturnType: "refund", Reasoning: "Damaged leg."}, nil
}

func (b *returnsBackend) SearchSimilar(context.Context, string, string) ([]any, error) {
	return []any{}, nil
}

// UpdateOrder writes the order back the way the backend does.
func (b *returnsBackend) UpdateOrder(ctx context.Context, o catalog.Order) error {
	b.mu.Lock()
	b.updated = append(b.updated, o)
	b.mu.Unlock()
	return putOrder(ctx, b.store, o)
}

type memoryBlob struct {
	uploads []string
}

func (m *memoryBlob) Upload(_ context.Context, prefix, _ string, r io.Reader) (blob.Object, error) {
	if _, err := io.ReadAll(r); err != nil {
		return blob.Object{}, err
	}
	obj := blob.Object{Name: "u1", Path: prefix + "/u1"}
	m.uploads = append(m.uploads, obj.Path)
	return obj, nil
}

func (m *memoryBlob) URL(_ context.Context, objectPath string) (string, error) {
	return "https://files.example.com/" + objectPath, nil
}

func putOrder(ctx context.Context, store docstore.Store, o catalog.Order) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	return store.Set(ctx, docstore.OrderDoc(o.ID), data)
}

func newReturnsFixture(t *testing.T) (IReturnsService, *returnsBackend, *memoryBlob) {
	t.Helper()
	store := docstore.NewMemoryStore()
	require.NoError(t, putOrder(context.Background(), store, catalog.Order{
		ID:          "o1",
		OrderDate:   "2026-10-01T09:00:00Z",
		OrderStatus: catalog.OrderStatusInitiated,
		UserID:      "alice",
		OrderItems: []catalog.OrderItem{
			{Product: catalog.Product{ID: "chair", Title: "Chair", ImageURLs: []string{"https://img/chair.png"}}},
		},
	}))
	backend := &returnsBackend{store: store}
	files := &memoryBlob{}
	svc := NewReturnsService(backend, store, files, &recordedAnalytics{}, logger.NewNopLogger())
	svc.(*returnsService).now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return svc, backend, files
}

func pngUpload() *Upload {
	return &Upload{ContentType: "image/png", Body: strings.NewReader("png")}
}

func TestSubmitReturnPutsItemUnderReview(t *testing.T) {
	svc, backend, files := newReturnsFixture(t)

	res, err := svc.SubmitReturn(context.Background(), "alice", "s1", "o1", "chair", pngUpload(), nil)
	require.NoError(t, err)

	item := res.Order.OrderItems[0]
	assert.True(t, item.IsReturned)
	require.NotNil(t, item.ReturnMetadata)
	assert.Equal(t, string(workflow.ReturnUnderReview), item.ReturnMetadata.ReturnStatus)
	assert.Equal(t, "2026-10-15", item.ReturnMetadata.ReturnedDate)
	assert.Equal(t, "refund", item.ReturnMetadata.ReturnType)
	assert.True(t, res.AllReturned)

	assert.Equal(t, []string{blob.ReturnImagesPrefix + "/u1"}, files.uploads)
	require.Len(t, backend.requests, 1)
	assert.Equal(t, "https://img/chair.png", backend.requests[0].ProductURL)
	assert.Equal(t, blob.ReturnImagesPrefix+"/u1", backend.requests[0].ReturnImage)

	_, err = svc.SubmitReturn(context.Background(), "alice", "s1", "o1", "chair", pngUpload(), nil)
	assert.ErrorIs(t, err, errOrderReturned)
}

func TestSubmitReturnValidatesInput(t *testing.T) {
	svc, backend, _ := newReturnsFixture(t)
	ctx := context.Background()

	_, err := svc.SubmitReturn(ctx, "alice", "s1", "o1", "chair", nil, nil)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)

	_, err = svc.SubmitReturn(ctx, "bob", "s1", "o1", "chair", pngUpload(), nil)
	assert.ErrorIs(t, err, serverutils.ErrForbidden)

	_, err = svc.SubmitReturn(ctx, "alice", "s1", "o1", "sofa", pngUpload(), nil)
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)

	_, err = svc.Order(ctx, "alice", "missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	assert.Empty(t, backend.updated)
}

func TestDecideMarksHumanVerification(t *testing.T) {
	svc, _, _ := newReturnsFixture(t)
	ctx := context.Background()

	_, err := svc.Decide(ctx, "agent", "o1", "chair", true)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	_, err = svc.SubmitReturn(ctx, "alice", "s1", "o1", "chair", pngUpload(), nil)
	require.NoError(t, err)

	res, err := svc.Decide(ctx, "agent", "o1", "chair", true)
	require.NoError(t, err)
	meta := res.Order.OrderItems[0].ReturnMetadata
	assert.Equal(t, string(workflow.ReturnAccepted), meta.ReturnStatus)
	assert.True(t, strings.HasSuffix(meta.AIValidationReason, workflow.HumanVerified))

	_, err = svc.CompleteExchange(ctx, "alice", "o1", "chair")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestSimilarNeedsImageOrQuery(t *testing.T) {
	svc, _, _ := newReturnsFixture(t)
	_, err := svc.Similar(context.Background(), &dto.SimilarItemsRequest{})
	assert.Error(t, err)
}
