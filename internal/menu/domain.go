package menu

import (
	"errors"
	"time"
)

// Category groups menu items on the admin console.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a sellable menu entry. Price is stored in minor units.
type Item struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Modifier is an optional add-on attached to an item.
type Modifier struct {
	ID         int64  `json:"id"`
	ItemID     int64  `json:"item_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// CategoryInput carries create/update fields for a category.
type CategoryInput struct {
	Name      string `json:"name" validate:"required,min=2,max=80"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// ItemInput carries create/update fields for an item.
type ItemInput struct {
	CategoryID  int64  `json:"category_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=500"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
	Available   bool   `json:"available"`
}

// ModifierInput carries create fields for a modifier.
type ModifierInput struct {
	Name       string `json:"name" validate:"required,min=1,max=80"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// ErrCategoryInUse is returned when deleting a category that still has items.
var ErrCategoryInUse = errors.New("menu: category still has items")
