package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadRoundTrip(t *testing.T) {
	e := NewAnalytics(AddToCart, "u1", "s1", map[string]interface{}{"product_id": "p9"})
	got := FromPayload("analytics."+AddToCart, e.Payload())

	assert.Equal(t, AddToCart, got.EventType())
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "p9", got.Params["product_id"])
	assert.True(t, got.Timestamp().Equal(e.Timestamp()))
}

func TestPayloadDoesNotAliasParams(t *testing.T) {
	params := map[string]interface{}{"q": "sofa"}
	e := NewAnalytics(SearchQuery, "u1", "", params)
	p := e.Payload()
	p["q"] = "chair"
	assert.Equal(t, "sofa", params["q"])
	_, hasSession := p["session_id"]
	assert.False(t, hasSession)
}
