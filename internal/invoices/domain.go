package invoices

import (
	"errors"
	"time"
)

// Invoice is a bill issued over a fulfilled order.
type Invoice struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	OrderID       int64     `json:"order_id"`
	OrderCode     string    `json:"order_code"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TaxCents      int64     `json:"tax_cents"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	IssuedBy      int64     `json:"issued_by"`
	IssuedAt      time.Time `json:"issued_at"`

	// Display totals are formatted server side so every client renders
	// money the same way.
	SubtotalDisplay string `json:"subtotal_display,omitempty"`
	TaxDisplay      string `json:"tax_display,omitempty"`
	TotalDisplay    string `json:"total_display,omitempty"`
}

// IssueInput carries fields to issue an invoice.
type IssueInput struct {
	OrderID    int64 `json:"order_id" validate:"required,gt=0"`
	TaxRateBPs int   `json:"tax_rate_bps" validate:"gte=0,lte=2500"`
}

// ErrOrderNotFulfilled rejects invoicing an order outside the fulfilled state.
var ErrOrderNotFulfilled = errors.New("invoices: order not fulfilled")

// ErrAlreadyInvoiced rejects a second invoice for the same order.
var ErrAlreadyInvoiced = errors.New("invoices: order already invoiced")
