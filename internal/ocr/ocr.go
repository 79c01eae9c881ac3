// Package ocr extracts structured data from receipt images.
package ocr

import (
	"context"
	"errors"
)

// ErrEmptyImage is returned when a scan request carries no image data
var ErrEmptyImage = errors.New("receipt image is empty")

// Image is the receipt submitted for scanning
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// LineItem is one purchased item printed on a receipt
type LineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// Receipt is the structured result of a scan
type Receipt struct {
	Vendor        string     `json:"vendor"`
	Date          string     `json:"date"`
	InvoiceNumber string     `json:"invoice_number"`
	Amount        float64    `json:"amount"`
	TaxAmount     float64    `json:"tax_amount"`
	TotalAmount   float64    `json:"total_amount"`
	Category      string     `json:"category"`
	Items         []LineItem `json:"items"`
	Confidence    float64    `json:"confidence"`
	Engine        string     `json:"engine"`
}

// ReceiptScanner turns a receipt image into structured data.
// Implementations must be safe for concurrent use.
type ReceiptScanner interface {
	Scan(ctx context.Context, img Image) (*Receipt, error)
}
