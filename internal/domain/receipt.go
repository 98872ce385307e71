package domain

import "time"

// ============================================================
// Receipts — append-only billing documents
// ============================================================

// SupportedCurrencies are the currencies a receipt may be issued in.
var SupportedCurrencies = map[string]bool{
	"EUR": true,
	"USD": true,
	"MAD": true,
	"TND": true,
	"DZD": true,
}

// LineItem is a single billed position on a receipt.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total returns quantity × unit price for this line.
func (li LineItem) Total() float64 {
	return li.Quantity * li.UnitPrice
}

// ReceiptCustomer identifies the customer the receipt was issued to.
type ReceiptCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// BrandingSnapshot freezes the issuer's branding at issue time.
// Later profile edits never change an already issued receipt.
type BrandingSnapshot struct {
	IssuerName     string `json:"issuer_name"`
	LogoURL        string `json:"logo_url,omitempty"`
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	StampText      string `json:"stamp_text,omitempty"`
	StampImageURL  string `json:"stamp_image_url,omitempty"`
}

// Receipt is immutable once issued. Corrections are new receipts
// referencing the original via CorrectionOf; rows are never updated.
type Receipt struct {
	ID           string           `json:"id"`
	Number       string           `json:"number"`
	AccountID    string           `json:"account_id"`
	Customer     ReceiptCustomer  `json:"customer"`
	Items        []LineItem       `json:"items"`
	Subtotal     float64          `json:"subtotal"`
	Total        float64          `json:"total"`
	Currency     string           `json:"currency"`
	Notes        string           `json:"notes,omitempty"`
	Branding     BrandingSnapshot `json:"branding"`
	CorrectionOf string           `json:"correction_of,omitempty"`
	IssuedAt     time.Time        `json:"issued_at"`
}

// IssueReceiptRequest is the body for POST /v1/receipts. There is
// deliberately no total field: totals are always computed server-side.
type IssueReceiptRequest struct {
	Customer ReceiptCustomer `json:"customer"`
	Items    []LineItem      `json:"items"`
	Currency string          `json:"currency,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}
