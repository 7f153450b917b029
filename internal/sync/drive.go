package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/mkalnins/warranty-keeper/internal/document"
)

const (
	rootFolderName   = "WarrantyKeeper"
	manifestFilename = "metadata.json"
	folderMIMEType   = "application/vnd.google-apps.folder"
)

// Drive mirrors photos and the manifest into per-account folders under a
// single app root folder on Google Drive. With the drive.file scope the
// API only ever sees files this app created.
type Drive struct {
	svc *drive.Service
}

// NewDrive builds a Drive client from a credentials file.
func NewDrive(ctx context.Context, credentialsFile string) (*Drive, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Drive{svc: svc}, nil
}

// sanitizeAccount turns an account email into a Drive-safe folder name.
func sanitizeAccount(email string) string {
	s := strings.ReplaceAll(email, "@", "_at_")
	return strings.ReplaceAll(s, ".", "_")
}

func escapeQuery(name string) string {
	return strings.ReplaceAll(name, "'", `\'`)
}

// ensureFolder finds or creates a folder, optionally inside a parent.
func (d *Drive) ensureFolder(ctx context.Context, name, parentID string) (string, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMIMEType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", parentID)
	}
	list, err := d.svc.Files.List().Q(q).Spaces("drive").Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("listing folders: %w", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	meta := &drive.File{Name: name, MimeType: folderMIMEType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := d.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating folder %q: %w", name, err)
	}
	slog.Info("Created Drive folder", "name", name, "id", created.Id)
	return created.Id, nil
}

// accountFolder provisions <root>/<sanitized account> and returns its ID.
func (d *Drive) accountFolder(ctx context.Context, account string) (string, error) {
	rootID, err := d.ensureFolder(ctx, rootFolderName, "")
	if err != nil {
		return "", err
	}
	return d.ensureFolder(ctx, sanitizeAccount(account), rootID)
}

// UploadPhoto uploads a document photo into the owner's folder and
// returns the Drive file ID and a viewable link. A previously uploaded
// version is deleted first so edits do not accumulate stale copies.
func (d *Drive) UploadPhoto(ctx context.Context, doc *document.Document, data []byte) (string, string, error) {
	folderID, err := d.accountFolder(ctx, doc.UserID)
	if err != nil {
		return "", "", err
	}

	if doc.DriveFileID != "" {
		if err := d.svc.Files.Delete(doc.DriveFileID).Context(ctx).Do(); err != nil {
			slog.Warn("Could not delete old Drive copy", "file_id", doc.DriveFileID, "error", err)
		}
	}

	name := fmt.Sprintf("doc_%s_%s", doc.ID, filepath.Base(doc.PhotoLocalPath))
	meta := &drive.File{Name: name, Parents: []string{folderID}}
	uploaded, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id, webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("uploading photo: %w", err)
	}
	return uploaded.Id, uploaded.WebViewLink, nil
}

// DownloadPhoto fetches a photo previously uploaded to Drive.
func (d *Drive) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading photo %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading photo %s: %w", fileID, err)
	}
	return data, nil
}

// UploadManifest writes metadata.json into the account folder, updating
// the existing file in place when one exists.
func (d *Drive) UploadManifest(ctx context.Context, account string, payload []byte) error {
	folderID, err := d.accountFolder(ctx, account)
	if err != nil {
		return err
	}

	existingID, err := d.findManifest(ctx, folderID)
	if err != nil {
		return err
	}

	if existingID != "" {
		_, err = d.svc.Files.Update(existingID, &drive.File{}).
			Media(bytes.NewReader(payload)).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("updating manifest: %w", err)
		}
		return nil
	}

	meta := &drive.File{Name: manifestFilename, Parents: []string{folderID}}
	_, err = d.svc.Files.Create(meta).
		Media(bytes.NewReader(payload)).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	return nil
}

// DownloadManifest fetches metadata.json for the account. A nil payload
// with nil error means no manifest exists yet.
func (d *Drive) DownloadManifest(ctx context.Context, account string) ([]byte, error) {
	folderID, err := d.accountFolder(ctx, account)
	if err != nil {
		return nil, err
	}

	fileID, err := d.findManifest(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, nil
	}

	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading manifest: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return payload, nil
}

func (d *Drive) findManifest(ctx context.Context, folderID string) (string, error) {
	q := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", manifestFilename, folderID)
	list, err := d.svc.Files.List().Q(q).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("listing manifest: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// DeleteFile removes a file from Drive.
func (d *Drive) DeleteFile(ctx context.Context, fileID string) error {
	if err := d.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting drive file %s: %w", fileID, err)
	}
	return nil
}
