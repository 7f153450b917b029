package document

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// documentView is a document as the API returns it: the stored record
// plus warranty state derived at read time, never persisted.
type documentView struct {
	*Document
	WarrantyStatus  *WarrantyStatus `json:"warranty_status,omitempty"`
	DaysUntilExpiry *int            `json:"days_until_expiry,omitempty"`
}

func (s *Server) viewOf(doc *Document) documentView {
	now := s.clock.Now()
	return documentView{
		Document:        doc,
		WarrantyStatus:  doc.WarrantyStatus(now),
		DaysUntilExpiry: doc.DaysUntilExpiry(now),
	}
}

func (s *Server) viewsOf(docs []*Document) []documentView {
	// Always an array in responses, never null.
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, s.viewOf(doc))
	}
	return views
}

// handleListDocuments returns the account's documents, newest first.
// ?type filters by document type, ?q searches title and store name.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	var (
		docs []*Document
		err  error
	)

	if q := r.URL.Query().Get("q"); q != "" {
		docs, err = s.service.SearchDocuments(s.account, q)
	} else {
		docType := Type(r.URL.Query().Get("type"))
		if docType != "" && docType != TypeReceipt && docType != TypeWarranty {
			corsError(w, "Unknown document type", http.StatusBadRequest)
			return
		}
		docs, err = s.service.ListDocuments(s.account, docType)
	}
	if err != nil {
		slog.Error("Error listing documents", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.viewsOf(docs)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUploadDocument handles document photo upload
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	// Max 50MB to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		json.NewEncoder(w).Encode(map[string]string{
			"error": errorMsg,
		})
		return
	}

	docType := Type(strings.ToUpper(r.FormValue("type")))
	if docType == "" {
		docType = TypeReceipt
	}
	if docType != TypeReceipt && docType != TypeWarranty {
		corsError(w, "Unknown document type", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		json.NewEncoder(w).Encode(map[string]string{
			"error": errorMsg,
		})
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "File is too large. Maximum size is 50MB. Please compress or resize your image.",
		})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "Error reading file. Please try again.",
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	doc, err := s.service.AddDocument(r.Context(), s.account, header.Filename, data, contentType, docType)
	if err != nil {
		slog.Error("Error adding document", "filename", header.Filename, "error", err)
		setCORSHeaders(w)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(s.viewOf(doc)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetDocument returns a single document
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	doc, err := s.service.GetDocument(s.account, id)
	if err != nil {
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.viewOf(doc)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleUpdateDocument applies user edits to a document
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}

	var update DocumentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := s.service.UpdateDocument(s.account, id, update)
	if err != nil {
		slog.Error("Error updating document", "id", id, "error", err)
		corsError(w, "Document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.viewOf(doc)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteDocument deletes a document and its photo
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteDocument(r.Context(), s.account, id); err != nil {
		corsError(w, "Error deleting document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetPhoto returns the stored photo for a document
func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Document ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetPhoto(s.account, id)
	if err != nil {
		corsError(w, "Photo not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleListAlerts returns warranties expiring within the alert window,
// expired ones included, soonest first.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.ExpiringWarranties(s.account, s.clock.Now())
	if err != nil {
		slog.Error("Error listing expiring warranties", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.viewsOf(docs)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleSync triggers a sync cycle right away
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		corsError(w, "Cloud sync is not configured", http.StatusServiceUnavailable)
		return
	}
	start := time.Now()
	if err := s.syncer.SyncOnce(r.Context()); err != nil {
		slog.Error("Manual sync failed", "error", err)
		corsError(w, "Sync failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "ok",
		"duration": time.Since(start).String(),
	})
}

// handleRestore pulls the cloud manifest and re-creates any documents
// missing locally
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		corsError(w, "Cloud sync is not configured", http.StatusServiceUnavailable)
		return
	}
	if err := s.syncer.Restore(r.Context()); err != nil {
		slog.Error("Restore failed", "error", err)
		corsError(w, "Restore failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
