package catalog

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyUnmarshal(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Money
	}{
		{"number", `249.99`, 24999},
		{"integer", `12`, 1200},
		{"string", `"19.90"`, 1990},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"float noise", `0.30000000000000004`, 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Money
			require.NoError(t, json.Unmarshal([]byte(tc.in), &m))
			assert.Equal(t, tc.want, m)
		})
	}
}

func TestMoneyMarshal(t *testing.T) {
	b, err := json.Marshal(Product{ID: "1", Title: "Sofa", Price: 24999})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"price":249.99`)

	assert.Equal(t, "-0.05", Money(-5).String())
}

func TestOrderAllReturned(t *testing.T) {
	o := Order{OrderItems: []OrderItem{
		{Product: Product{ID: "a"}, IsReturned: true},
		{Product: Product{ID: "b"}},
	}}
	assert.False(t, o.AllReturned())
	assert.Equal(t, 1, o.Item("b"))
	assert.Equal(t, -1, o.Item("c"))

	o.OrderItems[1].IsReturned = true
	assert.True(t, o.AllReturned())
}

func TestInstantAcceptsBothStoreShapes(t *testing.T) {
	want := time.Date(2024, 3, 1, 9, 30, 0, 500, time.UTC)
	tests := []struct {
		name string
		in   string
	}{
		{"rfc3339", `"2024-03-01T09:30:00.0000005Z"`},
		{"seconds", fmt.Sprintf(`{"seconds": %d, "nanoseconds": 500}`, want.Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Instant
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.True(t, got.Equal(want))
		})
	}

	var bad Instant
	assert.Error(t, json.Unmarshal([]byte(`{"nanoseconds": 1}`), &bad))

	var a AgentActivity
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Fix sofa","customer_id":"c1","status":"Open","timestamp":{"seconds":1709285400,"nanoseconds":0}}`), &a))
	assert.Equal(t, int64(1709285400), a.Timestamp.Unix())
}
