package service

import (
	"context"
	"encoding/json"
	"testing"

	"cymbal-assist-be/internal/dto"
	"cymbal-assist-be/internal/pkg/logger"
	"cymbal-assist-be/pkg/catalog"
	"cymbal-assist-be/pkg/docstore"
	"cymbal-assist-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activityBackend embeds the interface so only the calls under test need
// bodies.
type activityBackend struct {
	FieldBackend
	put []catalog.AgentActivity
}

func (b *activityBackend) PutAgentActivity(_ context.Context, _ string, a catalog.AgentActivity) error {
	b.put = append(b.put, a)
	return nil
}

func TestActivityStatusOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	raw, err := json.Marshal(catalog.AgentActivity{Title: "Fix sofa", CustomerID: "c1", Status: string(workflow.ActivityInProgress)})
	require.NoError(t, err)
	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	require.NoError(t, store.Set(ctx, docstore.ActivitiesCollection("agent")+"/a1", data))

	backend := &activityBackend{}
	analytics := &recordedAnalytics{}
	svc := NewFieldAgentService(backend, store, nil, &recordedFrames{}, analytics, logger.NewNopLogger())

	_, err = svc.SetActivityStatus(ctx, "agent", "s1", "a1", &dto.ActivityStatusRequest{Status: string(workflow.ActivityOpen)})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
	assert.Empty(t, backend.put)

	next, err := svc.SetActivityStatus(ctx, "agent", "s1", "a1", &dto.ActivityStatusRequest{Status: string(workflow.ActivityCompleted)})
	require.NoError(t, err)
	assert.Equal(t, string(workflow.ActivityCompleted), next.Status)
	assert.Equal(t, "a1", next.ID)
	require.Len(t, backend.put, 1)
	assert.Len(t, analytics.types(), 1)

	_, err = svc.SetActivityStatus(ctx, "agent", "s1", "missing", &dto.ActivityStatusRequest{Status: string(workflow.ActivityCompleted)})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}
