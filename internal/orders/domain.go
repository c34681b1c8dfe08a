package orders

import (
	"errors"
	"fmt"
	"time"
)

// Status enumerates the order lifecycle.
type Status string

const (
	// StatusOpen is a draft order still being edited.
	StatusOpen Status = "open"
	// StatusSubmitted means the order went to the kitchen.
	StatusSubmitted Status = "submitted"
	// StatusFulfilled is a completed order, eligible for invoicing.
	StatusFulfilled Status = "fulfilled"
	// StatusCancelled is terminal.
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusOpen:      {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusFulfilled, StatusCancelled},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order models a dine-in or takeaway order with its lines.
type Order struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Status     Status    `json:"status"`
	TableNo    string    `json:"table_no,omitempty"`
	Note       string    `json:"note,omitempty"`
	TotalCents int64     `json:"total_cents"`
	Lines      []Line    `json:"lines,omitempty"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Line snapshots a menu item at order time. Prices are copied so later
// menu edits do not rewrite order history.
type Line struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	ItemID         int64  `json:"item_id"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// LineInput is one requested line on create/update.
type LineInput struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
	Qty    int   `json:"qty" validate:"required,gt=0,lte=99"`
}

// CreateInput carries fields for a new order.
type CreateInput struct {
	TableNo string      `json:"table_no" validate:"max=16"`
	Note    string      `json:"note" validate:"max=500"`
	Lines   []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status Status
	Since  time.Time
}

// ErrInvalidTransition rejects a status change outside the lifecycle.
var ErrInvalidTransition = errors.New("orders: invalid status transition")

// ErrUnknownItem is returned when an order line references a missing item.
var ErrUnknownItem = errors.New("orders: unknown menu item")

// ErrItemUnavailable is returned for lines on items marked unavailable.
var ErrItemUnavailable = errors.New("orders: menu item unavailable")

// TransitionError decorates ErrInvalidTransition with the attempted move.
func TransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}
