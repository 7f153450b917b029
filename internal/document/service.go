package document

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkalnins/warranty-keeper/internal/extract"
	"github.com/mkalnins/warranty-keeper/internal/recognize"
)

// IDGenerator generates unique document IDs.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// CloudMirror mirrors photos to per-user cloud storage. A nil mirror
// disables sync; every mirror failure is non-fatal because the document
// is already stored locally.
type CloudMirror interface {
	// UploadPhoto uploads a document photo and returns the cloud file
	// ID and a viewable link.
	UploadPhoto(ctx context.Context, doc *Document, data []byte) (fileID, webLink string, err error)

	// DeleteFile removes a previously uploaded file.
	DeleteFile(ctx context.Context, fileID string) error
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service owns the document lifecycle: capture, extraction seeding,
// edits, deletion, and the queries the HTTP surface and the sync and
// notification loops run.
type Service struct {
	db         DB
	storage    Storage
	recognizer recognize.Recognizer
	cloud      CloudMirror
	idGen      IDGenerator
	clock      TimeSource
}

// NewService creates a Service with uuid IDs and the wall clock.
func NewService(db DB, storage Storage, recognizer recognize.Recognizer, cloud CloudMirror) *Service {
	return NewServiceWithDeps(db, storage, recognizer, cloud, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a Service with injected ID generator and
// clock for testing.
func NewServiceWithDeps(db DB, storage Storage, recognizer recognize.Recognizer, cloud CloudMirror, idGen IDGenerator, clock TimeSource) *Service {
	return &Service{
		db:         db,
		storage:    storage,
		recognizer: recognizer,
		cloud:      cloud,
		idGen:      idGen,
		clock:      clock,
	}
}

var (
	reFilenameJunk   = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reFilenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename tames phone-generated filenames: strips special
// characters, collapses whitespace and truncates the base name.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	base = reFilenameJunk.ReplaceAllString(base, "")
	base = strings.TrimSpace(reFilenameSpaces.ReplaceAllString(base, " "))
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "photo"
	}
	return base + ext
}

// photoMIME infers the photo content type from its filename.
func photoMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic", ".heif":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

// AddDocument stores a captured photo, runs text recognition and
// extraction to seed the record, persists it and opportunistically
// mirrors the photo to the cloud. Extraction is best-effort: a failed
// OCR pass never blocks document creation.
func (s *Service) AddDocument(ctx context.Context, userID, filename string, data []byte, contentType string, docType Type) (*Document, error) {
	id := s.idGen.Generate()
	now := s.clock.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving photo: %w", err)
	}

	text, err := s.recognizer.RecognizeText(data, contentType)
	if err != nil {
		slog.Warn("Text recognition failed, storing document without extracted fields",
			"filename", filename, "error", err)
		text = ""
	}

	doc := &Document{
		ID:             id,
		UserID:         userID,
		Type:           docType,
		PhotoLocalPath: savedPath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.seedFromExtraction(doc, text, now)

	if err := s.db.SaveDocument(doc); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving document: %w", err)
	}

	s.mirrorPhoto(ctx, doc, data)

	return doc, nil
}

// seedFromExtraction pre-fills document fields from the recognized text.
// User edits applied later always win over these values.
func (s *Service) seedFromExtraction(doc *Document, text string, now time.Time) {
	dateLabel := now.Format("02.01.2006")
	switch doc.Type {
	case TypeWarranty:
		info := extract.ExtractWarrantyInfo(text)
		doc.Title = "Warranty " + dateLabel
		if info.ProductName != nil {
			doc.Title = *info.ProductName
		}
		if info.StoreName != nil {
			doc.StoreName = *info.StoreName
		}
		doc.PurchaseDate = info.PurchaseDate
		doc.WarrantyEndDate = info.WarrantyEndDate
	default:
		info := extract.ExtractReceiptInfo(text)
		doc.Title = "Receipt " + dateLabel
		if info.StoreName != nil {
			doc.Title = *info.StoreName
			doc.StoreName = *info.StoreName
		}
		doc.PurchaseDate = info.PurchaseDate
		doc.TotalAmount = info.TotalAmount
		doc.Currency = info.Currency
	}
}

// mirrorPhoto uploads the photo when a cloud mirror is configured.
// Failures are logged and swallowed; the periodic sync loop retries.
func (s *Service) mirrorPhoto(ctx context.Context, doc *Document, data []byte) {
	if s.cloud == nil {
		return
	}
	fileID, webLink, err := s.cloud.UploadPhoto(ctx, doc, data)
	if err != nil {
		slog.Warn("Cloud upload failed, document stays unsynced",
			"document", doc.ID, "error", err)
		return
	}
	doc.Synced = true
	doc.DriveFileID = fileID
	doc.PhotoCloudPath = webLink
	if err := s.db.SaveDocument(doc); err != nil {
		slog.Warn("Failed to record sync state", "document", doc.ID, "error", err)
	}
}

// GetDocument retrieves one document.
func (s *Service) GetDocument(userID, id string) (*Document, error) {
	doc, err := s.db.GetDocument(userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// GetPhoto returns the photo bytes and content type for a document.
func (s *Service) GetPhoto(userID, id string) ([]byte, string, error) {
	doc, err := s.db.GetDocument(userID, id)
	if err != nil {
		return nil, "", fmt.Errorf("getting document: %w", err)
	}
	data, err := s.storage.Get(doc.PhotoLocalPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting photo: %w", err)
	}
	return data, photoMIME(doc.PhotoLocalPath), nil
}

// ListDocuments returns all documents for a user, optionally filtered by
// type, newest first.
func (s *Service) ListDocuments(userID string, docType Type) ([]*Document, error) {
	docs, err := s.db.ListDocuments(userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if docType == "" {
		return docs, nil
	}
	filtered := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if d.Type == docType {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// SearchDocuments returns documents whose title or store name contains
// the query, case-insensitively.
func (s *Service) SearchDocuments(userID, query string) ([]*Document, error) {
	docs, err := s.db.ListDocuments(userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	q := strings.ToLower(query)
	matched := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Title), q) ||
			strings.Contains(strings.ToLower(d.StoreName), q) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

// DocumentUpdate carries user edits. Nil fields are left untouched;
// non-nil fields always win over extracted values.
type DocumentUpdate struct {
	Title           *string    `json:"title,omitempty"`
	StoreName       *string    `json:"store_name,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	WarrantyEndDate *time.Time `json:"warranty_end_date,omitempty"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	Currency        *string    `json:"currency,omitempty"`
}

// UpdateDocument applies user edits and marks the document for re-sync.
func (s *Service) UpdateDocument(userID, id string, update DocumentUpdate) (*Document, error) {
	doc, err := s.db.GetDocument(userID, id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	if update.Title != nil {
		doc.Title = *update.Title
	}
	if update.StoreName != nil {
		doc.StoreName = *update.StoreName
	}
	if update.Notes != nil {
		doc.Notes = *update.Notes
	}
	if update.PurchaseDate != nil {
		doc.PurchaseDate = update.PurchaseDate
	}
	if update.WarrantyEndDate != nil && doc.Type == TypeWarranty {
		doc.WarrantyEndDate = update.WarrantyEndDate
	}
	if update.TotalAmount != nil {
		doc.TotalAmount = update.TotalAmount
	}
	if update.Currency != nil {
		doc.Currency = *update.Currency
	}

	// Warranty fields are meaningless on receipts.
	if doc.Type == TypeReceipt {
		doc.WarrantyEndDate = nil
	}

	doc.UpdatedAt = s.clock.Now()
	doc.Synced = false

	if err := s.db.SaveDocument(doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes the document, its photo and its cloud copy.
// Photo and cloud failures are logged but do not block the delete.
func (s *Service) DeleteDocument(ctx context.Context, userID, id string) error {
	doc, err := s.db.GetDocument(userID, id)
	if err != nil {
		return fmt.Errorf("getting document for deletion: %w", err)
	}

	if err := s.storage.Delete(doc.PhotoLocalPath); err != nil {
		slog.Warn("Failed to delete photo", "path", doc.PhotoLocalPath, "error", err)
	}
	if s.cloud != nil && doc.DriveFileID != "" {
		if err := s.cloud.DeleteFile(ctx, doc.DriveFileID); err != nil {
			slog.Warn("Failed to delete cloud copy", "file_id", doc.DriveFileID, "error", err)
		}
	}

	if err := s.db.DeleteDocument(userID, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListUnsynced returns documents whose photo has not been mirrored yet.
func (s *Service) ListUnsynced(userID string) ([]*Document, error) {
	docs, err := s.db.ListDocuments(userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	unsynced := make([]*Document, 0)
	for _, d := range docs {
		if !d.Synced {
			unsynced = append(unsynced, d)
		}
	}
	return unsynced, nil
}

// SetCloudState records a successful mirror of a document's photo.
func (s *Service) SetCloudState(userID, id, fileID, webLink string) error {
	doc, err := s.db.GetDocument(userID, id)
	if err != nil {
		return fmt.Errorf("getting document: %w", err)
	}
	doc.Synced = true
	doc.DriveFileID = fileID
	doc.PhotoCloudPath = webLink
	doc.UpdatedAt = s.clock.Now()
	if err := s.db.SaveDocument(doc); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// RestoreDocument inserts a document recovered from the cloud manifest.
// Existing local documents are left alone; returns whether an insert
// happened.
func (s *Service) RestoreDocument(doc *Document) (bool, error) {
	if _, err := s.db.GetDocument(doc.UserID, doc.ID); err == nil {
		return false, nil
	}
	doc.UpdatedAt = s.clock.Now()
	if err := s.db.SaveDocument(doc); err != nil {
		return false, fmt.Errorf("saving restored document: %w", err)
	}
	return true, nil
}

// SavePhoto stores photo bytes fetched during a cloud restore.
func (s *Service) SavePhoto(path string, data []byte) error {
	if _, err := s.storage.Save(path, data); err != nil {
		return fmt.Errorf("saving restored photo: %w", err)
	}
	return nil
}

// ExpiringWarranties returns warranty documents whose remaining days are
// at or below the expiring-soon threshold, including already expired
// ones, ordered soonest first.
func (s *Service) ExpiringWarranties(userID string, now time.Time) ([]*Document, error) {
	docs, err := s.db.ListDocuments(userID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	expiring := make([]*Document, 0)
	for _, d := range docs {
		if d.Type != TypeWarranty || d.WarrantyEndDate == nil {
			continue
		}
		if DaysUntilExpiry(*d.WarrantyEndDate, now) <= ExpiringSoonDays {
			expiring = append(expiring, d)
		}
	}
	sort.Slice(expiring, func(i, j int) bool {
		return expiring[i].WarrantyEndDate.Before(*expiring[j].WarrantyEndDate)
	})
	return expiring, nil
}

// ClearUser removes every document belonging to a user, used when an
// account signs out of the device.
func (s *Service) ClearUser(userID string) error {
	if err := s.db.DeleteAllForUser(userID); err != nil {
		return fmt.Errorf("clearing user data: %w", err)
	}
	return nil
}
