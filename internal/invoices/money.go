package invoices

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders minor-unit amounts in a fixed locale and currency so
// invoice totals look identical everywhere.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a Formatter for an ISO 4217 currency code. Unknown
// codes fall back to USD.
func NewFormatter(code string, tag language.Tag) *Formatter {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	return &Formatter{printer: message.NewPrinter(tag), unit: unit}
}

// Code returns the ISO currency code in use.
func (f *Formatter) Code() string {
	return f.unit.String()
}

// Format renders an amount in minor units, e.g. 123450 -> "USD 1,234.50".
func (f *Formatter) Format(cents int64) string {
	amount := f.unit.Amount(float64(cents) / 100)
	return f.printer.Sprintf("%v", amount)
}
