package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProductID is a product identifier. The backend writes ids as integers
// (42) while documents created by the client carry strings ("42"); both
// decode to the same value and it is always written back as a string.
type ProductID string

func (id ProductID) String() string {
	return string(id)
}

func (id *ProductID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ProductID(s)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("catalog: invalid product id %s: %w", string(data), err)
	}
	*id = ProductID(n.String())
	return nil
}
