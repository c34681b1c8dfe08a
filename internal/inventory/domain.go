package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementReceive records incoming stock from a supplier.
	MovementReceive MovementType = "receive"
	// MovementConsume records stock used by the kitchen.
	MovementConsume MovementType = "consume"
	// MovementWaste records spoiled or discarded stock.
	MovementWaste MovementType = "waste"
)

// Deducts reports whether the movement reduces the on-hand quantity.
func (t MovementType) Deducts() bool {
	return t == MovementConsume || t == MovementWaste
}

// StockItem is a tracked ingredient or supply.
type StockItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	OnHand       float64   `json:"on_hand"`
	ReorderLevel float64   `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LowStock reports whether the item has fallen to its reorder level.
func (s StockItem) LowStock() bool {
	return s.OnHand <= s.ReorderLevel
}

// Movement is one recorded stock adjustment.
type Movement struct {
	ID       int64        `json:"id"`
	ItemID   int64        `json:"item_id"`
	Type     MovementType `json:"type"`
	Quantity float64      `json:"quantity"`
	Note     string       `json:"note,omitempty"`
	ActorID  int64        `json:"actor_id"`
	At       time.Time    `json:"at"`
}

// StockItemInput carries create/update payloads for stock items.
type StockItemInput struct {
	Name         string  `json:"name" validate:"required,min=1,max=120"`
	Unit         string  `json:"unit" validate:"required,min=1,max=20"`
	ReorderLevel float64 `json:"reorder_level" validate:"gte=0"`
}

// MovementInput carries a stock adjustment request.
type MovementInput struct {
	Type     string  `json:"type" validate:"required,oneof=receive consume waste"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Note     string  `json:"note" validate:"max=250"`
}

// ErrInsufficientStock signals a deduction larger than the on-hand quantity.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")
