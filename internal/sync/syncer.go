package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkalnins/warranty-keeper/internal/document"
)

// CloudStore is the slice of the Drive client the syncer needs, kept as
// an interface so tests run without a Drive backend.
type CloudStore interface {
	UploadPhoto(ctx context.Context, doc *document.Document, data []byte) (fileID, webLink string, err error)
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)
	UploadManifest(ctx context.Context, account string, payload []byte) error
	DownloadManifest(ctx context.Context, account string) ([]byte, error)
}

// Syncer mirrors one account's documents to cloud storage: photos for
// unsynced records plus a full manifest each cycle, and restore on a
// fresh device. Sync failures never affect local data.
type Syncer struct {
	cloud   CloudStore
	service *document.Service
	account string
}

// NewSyncer creates a Syncer for one account.
func NewSyncer(cloud CloudStore, service *document.Service, account string) *Syncer {
	return &Syncer{cloud: cloud, service: service, account: account}
}

// SyncOnce uploads every unsynced photo, records the new cloud state and
// then replaces the manifest with a snapshot of all documents.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	unsynced, err := s.service.ListUnsynced(s.account)
	if err != nil {
		return fmt.Errorf("listing unsynced documents: %w", err)
	}
	slog.Debug("Sync cycle", "account", s.account, "unsynced", len(unsynced))

	for _, doc := range unsynced {
		data, _, err := s.service.GetPhoto(s.account, doc.ID)
		if err != nil {
			slog.Warn("Skipping document without readable photo", "document", doc.ID, "error", err)
			continue
		}
		fileID, webLink, err := s.cloud.UploadPhoto(ctx, doc, data)
		if err != nil {
			slog.Warn("Photo upload failed", "document", doc.ID, "error", err)
			continue
		}
		if err := s.service.SetCloudState(s.account, doc.ID, fileID, webLink); err != nil {
			slog.Warn("Failed to record sync state", "document", doc.ID, "error", err)
		}
	}

	docs, err := s.service.ListDocuments(s.account, "")
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	payload, err := json.MarshalIndent(BuildManifest(docs, time.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := s.cloud.UploadManifest(ctx, s.account, payload); err != nil {
		return fmt.Errorf("uploading manifest: %w", err)
	}

	slog.Info("Sync complete", "account", s.account, "documents", len(docs))
	return nil
}

// Restore downloads the account manifest and inserts every document not
// yet present locally, fetching its photo when one was mirrored. Local
// documents always win over manifest entries.
func (s *Syncer) Restore(ctx context.Context) error {
	payload, err := s.cloud.DownloadManifest(ctx, s.account)
	if err != nil {
		return fmt.Errorf("downloading manifest: %w", err)
	}
	if payload == nil {
		slog.Info("No cloud manifest, nothing to restore", "account", s.account)
		return nil
	}

	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return fmt.Errorf("unmarshaling manifest: %w", err)
	}
	slog.Info("Restoring documents from cloud", "account", s.account, "documents", len(manifest.Documents))

	for _, meta := range manifest.Documents {
		doc := meta.ToDocument(s.account)
		inserted, err := s.service.RestoreDocument(doc)
		if err != nil {
			slog.Warn("Failed to restore document", "document", meta.ID, "error", err)
			continue
		}
		if !inserted || meta.DriveFileID == "" {
			continue
		}
		data, err := s.cloud.DownloadPhoto(ctx, meta.DriveFileID)
		if err != nil {
			slog.Warn("Failed to download photo", "document", meta.ID, "error", err)
			continue
		}
		if err := s.service.SavePhoto(doc.PhotoLocalPath, data); err != nil {
			slog.Warn("Failed to save restored photo", "document", meta.ID, "error", err)
		}
	}
	return nil
}

// Run performs a sync immediately and then on every tick until the
// context is cancelled.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if err := s.SyncOnce(ctx); err != nil {
		slog.Error("Sync failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				slog.Error("Sync failed", "error", err)
			}
		}
	}
}
