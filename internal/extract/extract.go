package extract

import (
	"strings"
	"time"
)

// RecognizedText is the raw output of an OCR pass plus its non-blank
// trimmed lines. It is the only input the extraction engine sees.
type RecognizedText struct {
	Raw   string
	Lines []string
}

// NewRecognizedText splits raw OCR output into trimmed non-blank lines.
func NewRecognizedText(raw string) RecognizedText {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return RecognizedText{Raw: raw, Lines: lines}
}

// WarrantyInfo is the best-effort interpretation of a warranty document.
// Every field is optional: a nil field means "not found", never an error.
type WarrantyInfo struct {
	ProductName     *string
	StoreName       *string
	PurchaseDate    *time.Time
	WarrantyEndDate *time.Time
	WarrantyMonths  *int
	RawText         string
}

// ReceiptInfo is the best-effort interpretation of a purchase receipt.
// Currency is empty when no known currency was detected.
type ReceiptInfo struct {
	StoreName    *string
	PurchaseDate *time.Time
	TotalAmount  *float64
	Currency     string
	RawText      string
}

// ExtractWarrantyInfo parses raw OCR text from a warranty card or invoice.
// It never fails; unrecognizable input yields an all-absent result.
func ExtractWarrantyInfo(raw string) WarrantyInfo {
	rt := NewRecognizedText(raw)
	purchase := extractPurchaseDate(raw)
	months := extractWarrantyMonths(raw)
	return WarrantyInfo{
		ProductName:     extractProductName(rt),
		StoreName:       extractStoreName(rt),
		PurchaseDate:    purchase,
		WarrantyEndDate: computeEndDate(raw, purchase, months, time.Now()),
		WarrantyMonths:  months,
		RawText:         raw,
	}
}

// ExtractReceiptInfo parses raw OCR text from a point-of-sale receipt.
// It never fails; unrecognizable input yields an all-absent result.
func ExtractReceiptInfo(raw string) ReceiptInfo {
	rt := NewRecognizedText(raw)
	return ReceiptInfo{
		StoreName:    extractStoreName(rt),
		PurchaseDate: extractReceiptDate(rt),
		TotalAmount:  extractTotalAmount(rt),
		Currency:     extractCurrency(raw),
		RawText:      raw,
	}
}
