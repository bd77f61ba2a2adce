package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Instant is a point in time as the store writes it: either an RFC 3339
// string or a {seconds, nanoseconds} object. It is written back as RFC 3339.
type Instant struct {
	time.Time
}

func NewInstant(t time.Time) Instant {
	return Instant{Time: t}
}

func (i Instant) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.UTC().Format(time.RFC3339Nano))
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		i.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("instant: %w", err)
		}
		i.Time = t
		return nil
	}
	var ts struct {
		Seconds     *int64 `json:"seconds"`
		Nanoseconds int64  `json:"nanoseconds"`
	}
	if err := json.Unmarshal(data, &ts); err != nil {
		return fmt.Errorf("instant: %w", err)
	}
	if ts.Seconds == nil {
		return fmt.Errorf("instant: missing seconds in %s", data)
	}
	i.Time = time.Unix(*ts.Seconds, ts.Nanoseconds).UTC()
	return nil
}
