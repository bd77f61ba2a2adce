package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cymbal-assist-be/pkg/catalog"
)

func TestAdvanceActivity(t *testing.T) {
	cases := []struct {
		from    ActivityStatus
		to      ActivityStatus
		wantErr bool
	}{
		{ActivityOpen, ActivityInProgress, false},
		{ActivityOpen, ActivityCompleted, false},
		{ActivityInProgress, ActivityCompleted, false},
		{ActivityInProgress, ActivityInProgress, false},
		{ActivityCompleted, ActivityOpen, true},
		{ActivityInProgress, ActivityOpen, true},
		{ActivityOpen, "Cancelled", true},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			a := catalog.AgentActivity{ID: "a1", Status: string(tc.from)}
			got, err := AdvanceActivity(a, tc.to)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, string(tc.from), got.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tc.to), got.Status)
		})
	}
}

func testOrder() catalog.Order {
	return catalog.Order{
		ID:          "o1",
		OrderStatus: catalog.OrderStatusInitiated,
		OrderItems: []catalog.OrderItem{
			{Product: catalog.Product{ID: "chair", Title: "Chair", Price: 5000}},
			{Product: catalog.Product{ID: "sofa", Title: "Sofa", Price: 90000}},
		},
	}
}

func TestReturnLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	orig := testOrder()

	o, err := SubmitReturn(orig, "sofa", Validation{Valid: true, ReturnType: "damaged", Reasoning: "torn fabric", ImageName: "return-images/x"}, now)
	require.NoError(t, err)
	assert.Nil(t, orig.OrderItems[1].ReturnMetadata)

	it := o.OrderItems[1]
	assert.True(t, it.IsReturned)
	assert.Equal(t, string(ReturnUnderReview), it.ReturnMetadata.ReturnStatus)
	assert.Equal(t, "2024-03-02", it.ReturnMetadata.ReturnedDate)

	_, err = SubmitReturn(o, "sofa", Validation{}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	accepted, err := Decide(o, "sofa", true)
	require.NoError(t, err)
	assert.Equal(t, string(ReturnAccepted), accepted.OrderItems[1].ReturnMetadata.ReturnStatus)
	assert.Equal(t, "torn fabric"+HumanVerified, accepted.OrderItems[1].ReturnMetadata.AIValidationReason)
	assert.Equal(t, string(ReturnUnderReview), o.OrderItems[1].ReturnMetadata.ReturnStatus)

	_, err = Decide(accepted, "sofa", false)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Decide(orig, "chair", true)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, err := CompleteExchange(o, "sofa")
	require.NoError(t, err)
	assert.Equal(t, string(ReturnCompleted), done.OrderItems[1].ReturnMetadata.ReturnStatus)

	_, err = SubmitReturn(orig, "lamp", Validation{}, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
