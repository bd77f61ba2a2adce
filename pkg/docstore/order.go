package docstore

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// sortDocs orders a snapshot by q.OrderBy, keeping natural order for ties
// and for documents missing the field (those sort first).
func sortDocs(docs []Document, q Query) {
	if q.OrderBy == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
}

// compareValues compares timestamps, numbers and strings. Timestamps may be
// time.Time, RFC 3339 strings or {seconds, nanoseconds} maps depending on
// which backend wrote them.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if na, ok := asNumber(a); ok {
		if nb, ok := asNumber(b); ok {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}
	sa, _ := a.(string)
	sb, _ := b.(string)
	return strings.Compare(sa, sb)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	case map[string]any:
		s, ok1 := asNumber(t["seconds"])
		n, _ := asNumber(t["nanoseconds"])
		if !ok1 {
			return time.Time{}, false
		}
		return time.Unix(int64(s), int64(n)), true
	}
	return time.Time{}, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
