// Package workflow holds the two status machines the client drives: field
// agent activities and return items.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cymbal-assist-be/pkg/catalog"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type ActivityStatus string

const (
	ActivityOpen       ActivityStatus = "Open"
	ActivityInProgress ActivityStatus = "In progress"
	ActivityCompleted  ActivityStatus = "Completed"
)

var activityOrder = map[ActivityStatus]int{
	ActivityOpen:       0,
	ActivityInProgress: 1,
	ActivityCompleted:  2,
}

// AdvanceActivity moves an activity forward. Setting the current status
// again is a no-op; moving backwards is rejected.
func AdvanceActivity(a catalog.AgentActivity, to ActivityStatus) (catalog.AgentActivity, error) {
	from, ok := activityOrder[ActivityStatus(a.Status)]
	if !ok {
		return a, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, a.Status)
	}
	target, ok := activityOrder[to]
	if !ok {
		return a, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if target < from {
		return a, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	a.Status = string(to)
	return a, nil
}

type ReturnStatus string

const (
	ReturnPending     ReturnStatus = ""
	ReturnUnderReview ReturnStatus = "under review"
	ReturnAccepted    ReturnStatus = "accept"
	ReturnRejected    ReturnStatus = "reject"
	ReturnCompleted   ReturnStatus = "completed"
)

var returnEdges = map[ReturnStatus][]ReturnStatus{
	ReturnPending:     {ReturnUnderReview},
	ReturnUnderReview: {ReturnAccepted, ReturnRejected, ReturnCompleted},
}

func canReturn(from, to ReturnStatus) bool {
	for _, s := range returnEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// HumanVerified is appended to the AI reasoning once an agent decides.
const HumanVerified = " Verified by Human "

func returnStatusOf(it catalog.OrderItem) ReturnStatus {
	if it.ReturnMetadata == nil {
		return ReturnPending
	}
	return ReturnStatus(it.ReturnMetadata.ReturnStatus)
}

// Validation is the outcome of the AI review of uploaded return evidence.
type Validation struct {
	Valid      bool
	ReturnType string
	Reasoning  string
	ImageName  string
	VideoName  string
}

// SubmitReturn marks the item as returned and places it under review.
func SubmitReturn(o catalog.Order, productID string, v Validation, now time.Time) (catalog.Order, error) {
	o = cloneOrder(o)
	i := o.Item(productID)
	if i < 0 {
		return o, fmt.Errorf("%w: item %s not in order", ErrInvalidTransition, productID)
	}
	it := &o.OrderItems[i]
	if !canReturn(returnStatusOf(*it), ReturnUnderReview) {
		return o, fmt.Errorf("%w: item %s already %q", ErrInvalidTransition, productID, returnStatusOf(*it))
	}
	it.IsReturned = true
	it.ReturnMetadata = &catalog.ReturnMetadata{
		ImageUploaded:      v.ImageName,
		VideoUploaded:      v.VideoName,
		IsValid:            v.Valid,
		AIValidationReason: v.Reasoning,
		ReturnStatus:       string(ReturnUnderReview),
		ReturnType:         v.ReturnType,
		ReturnedDate:       now.Format(time.DateOnly),
	}
	return o, nil
}

// Decide records the human verdict on a return under review.
func Decide(o catalog.Order, productID string, accept bool) (catalog.Order, error) {
	to := ReturnRejected
	if accept {
		to = ReturnAccepted
	}
	return transitionReturn(o, productID, to, func(m *catalog.ReturnMetadata) {
		if !strings.HasSuffix(m.AIValidationReason, HumanVerified) {
			m.AIValidationReason += HumanVerified
		}
	})
}

// CompleteExchange closes a return for which an alternative item was chosen.
func CompleteExchange(o catalog.Order, productID string) (catalog.Order, error) {
	return transitionReturn(o, productID, ReturnCompleted, nil)
}

func transitionReturn(o catalog.Order, productID string, to ReturnStatus, edit func(*catalog.ReturnMetadata)) (catalog.Order, error) {
	o = cloneOrder(o)
	i := o.Item(productID)
	if i < 0 {
		return o, fmt.Errorf("%w: item %s not in order", ErrInvalidTransition, productID)
	}
	it := &o.OrderItems[i]
	from := returnStatusOf(*it)
	if !canReturn(from, to) {
		return o, fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, from, to)
	}
	it.ReturnMetadata.ReturnStatus = string(to)
	if edit != nil {
		edit(it.ReturnMetadata)
	}
	return o, nil
}

// cloneOrder copies the items so callers' snapshots are left untouched.
func cloneOrder(o catalog.Order) catalog.Order {
	items := make([]catalog.OrderItem, len(o.OrderItems))
	for i, it := range o.OrderItems {
		if it.ReturnMetadata != nil {
			m := *it.ReturnMetadata
			it.ReturnMetadata = &m
		}
		items[i] = it
	}
	o.OrderItems = items
	return o
}
