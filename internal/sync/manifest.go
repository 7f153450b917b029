package sync

import (
	"time"

	"github.com/mkalnins/warranty-keeper/internal/document"
)

// ManifestVersion is bumped when the manifest schema changes.
const ManifestVersion = 1

// Manifest is the metadata.json mirrored next to the photos in the
// user's cloud folder. It lists every document so another device can
// rebuild its local store.
type Manifest struct {
	Version   int            `json:"version"`
	LastSync  string         `json:"lastSync"`
	Documents []DocumentMeta `json:"documents"`
}

// DocumentMeta mirrors the fields of a stored document. Timestamps are
// epoch milliseconds; midday-normalized dates survive the round trip
// without drifting across a timezone boundary.
type DocumentMeta struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Type            string   `json:"type"`
	DriveFileID     string   `json:"driveFileId,omitempty"`
	PurchaseDate    *int64   `json:"purchaseDate,omitempty"`
	WarrantyEndDate *int64   `json:"warrantyEndDate,omitempty"`
	StoreName       string   `json:"storeName,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	TotalAmount     *float64 `json:"totalAmount,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	CreatedAt       int64    `json:"createdAt"`
}

// BuildManifest snapshots the user's documents.
func BuildManifest(docs []*document.Document, now time.Time) Manifest {
	metas := make([]DocumentMeta, 0, len(docs))
	for _, d := range docs {
		metas = append(metas, DocumentMeta{
			ID:              d.ID,
			Title:           d.Title,
			Type:            string(d.Type),
			DriveFileID:     d.DriveFileID,
			PurchaseDate:    toMillis(d.PurchaseDate),
			WarrantyEndDate: toMillis(d.WarrantyEndDate),
			StoreName:       d.StoreName,
			Notes:           d.Notes,
			TotalAmount:     d.TotalAmount,
			Currency:        d.Currency,
			CreatedAt:       d.CreatedAt.UnixMilli(),
		})
	}
	return Manifest{
		Version:   ManifestVersion,
		LastSync:  now.UTC().Format("2006-01-02T15:04:05Z"),
		Documents: metas,
	}
}

// ToDocument rebuilds a local document record from manifest metadata.
// The photo is fetched separately; until then the local path points at
// where the restore will place it.
func (m DocumentMeta) ToDocument(userID string) *document.Document {
	docType := document.Type(m.Type)
	if docType != document.TypeWarranty {
		docType = document.TypeReceipt
	}
	return &document.Document{
		ID:              m.ID,
		UserID:          userID,
		Title:           m.Title,
		Type:            docType,
		PhotoLocalPath:  "restored_" + m.ID + ".jpg",
		PurchaseDate:    fromMillis(m.PurchaseDate),
		WarrantyEndDate: fromMillis(m.WarrantyEndDate),
		StoreName:       m.StoreName,
		Notes:           m.Notes,
		TotalAmount:     m.TotalAmount,
		Currency:        m.Currency,
		CreatedAt:       time.UnixMilli(m.CreatedAt).UTC(),
		Synced:          true,
		DriveFileID:     m.DriveFileID,
	}
}

func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
