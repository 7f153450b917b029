package document

import "time"

// Type distinguishes the two kinds of tracked documents.
type Type string

const (
	TypeReceipt  Type = "RECEIPT"
	TypeWarranty Type = "WARRANTY"
)

// WarrantyStatus is derived from the warranty end date and the current
// instant. It is never persisted; callers recompute it on every read.
type WarrantyStatus string

const (
	StatusActive       WarrantyStatus = "ACTIVE"
	StatusExpiringSoon WarrantyStatus = "EXPIRING_SOON"
	StatusExpired      WarrantyStatus = "EXPIRED"
)

// ExpiringSoonDays is the remaining-days threshold below which a warranty
// counts as expiring soon.
const ExpiringSoonDays = 30

const millisPerDay = 24 * 60 * 60 * 1000

// Document is a stored receipt or warranty record. Warranty fields are
// only meaningful when Type is TypeWarranty; for receipts they stay nil.
type Document struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Title           string     `json:"title"`
	Type            Type       `json:"type"`
	PhotoLocalPath  string     `json:"photo_local_path"`
	PhotoCloudPath  string     `json:"photo_cloud_path,omitempty"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	WarrantyEndDate *time.Time `json:"warranty_end_date,omitempty"`
	StoreName       string     `json:"store_name,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Synced          bool       `json:"synced"`
	DriveFileID     string     `json:"drive_file_id,omitempty"`
}

// DaysUntilExpiry is the whole-day count from now to end, negative once
// the end date has passed. Millisecond difference divided by one day,
// truncating; every consumer of the value uses this same arithmetic.
func DaysUntilExpiry(end, now time.Time) int {
	return int(end.Sub(now).Milliseconds() / millisPerDay)
}

// Status classifies a warranty against the current instant. It returns
// nil for receipts and for warranties without an end date.
func Status(t Type, end *time.Time, now time.Time) *WarrantyStatus {
	if t != TypeWarranty || end == nil {
		return nil
	}
	days := DaysUntilExpiry(*end, now)
	var s WarrantyStatus
	switch {
	case days < 0:
		s = StatusExpired
	case days <= ExpiringSoonDays:
		s = StatusExpiringSoon
	default:
		s = StatusActive
	}
	return &s
}

// WarrantyStatus classifies the document itself at the given instant.
func (d *Document) WarrantyStatus(now time.Time) *WarrantyStatus {
	return Status(d.Type, d.WarrantyEndDate, now)
}

// DaysUntilExpiry returns the document's remaining warranty days, or nil
// when it has no end date.
func (d *Document) DaysUntilExpiry(now time.Time) *int {
	if d.WarrantyEndDate == nil {
		return nil
	}
	days := DaysUntilExpiry(*d.WarrantyEndDate, now)
	return &days
}
