package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/models"
)

type uploadRequest struct {
	Name      string              `json:"name"`
	Type      models.DocumentKind `json:"type"`
	Size      int64               `json:"size"`
	Content   string              `json:"content"`
	MediaType string              `json:"mime_type"`
}

type uploadResponse struct {
	FileID    string `json:"file_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// bodySlack covers the JSON envelope around an encoded document.
const bodySlack = 64 << 10

// maxBodySize bounds an upload request: one base64 document plus the envelope.
func (s *Server) maxBodySize() int64 {
	return int64(base64.StdEncoding.EncodedLen(int(s.upload.MaxFileSize))) + bodySlack
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())
	var req uploadRequest
	if !decode(w, r, &req) {
		return
	}
	if err := docs.Validate(req.Name, req.Size, req.Type, s.upload.MaxFileSize); err != nil {
		s.fail(w, r, err)
		return
	}
	content := docs.Decode(req.Content, req.Type, req.MediaType)
	size := docs.Size(content, req.Type, req.MediaType)
	if err := docs.CheckSize(size, s.upload.MaxFileSize); err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.store.GetSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}

	d := &models.Document{
		SessionID: sessionID,
		Name:      req.Name,
		Kind:      req.Type,
		Size:      size,
		MediaType: req.MediaType,
		Content:   content,
	}
	if err := s.store.CreateDocument(r.Context(), d); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Debug("document uploaded", "session", sessionID, "document", d.Name, "type", d.Kind, "size", d.Size)
	writeJSON(w, http.StatusOK, uploadResponse{FileID: d.ID, Message: "File uploaded successfully", SessionID: sessionID})
}

type zipUploadRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) uploadZip(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())
	var req zipUploadRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.store.GetSession(r.Context(), sessionID); err != nil {
		s.fail(w, r, err)
		return
	}
	payload := req.Content
	if _, rest, ok := strings.Cut(payload, ","); ok && strings.HasPrefix(payload, "data:") {
		payload = rest
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ZIP content must be base64 encoded")
		return
	}
	if int64(len(raw)) > s.upload.MaxFileSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("File size exceeds %dMB limit", s.upload.MaxFileSize>>20))
		return
	}

	entries, err := docs.ExpandZip(raw, s.upload.MaxZipFiles, s.upload.MaxFileSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		d := &models.Document{
			SessionID: sessionID,
			Name:      e.Name,
			Kind:      models.DocumentKindCode,
			Size:      int64(len(e.Content)),
			MediaType: "text/plain",
			Content:   e.Content,
		}
		if err := s.store.CreateDocument(r.Context(), d); err != nil {
			s.fail(w, r, err)
			return
		}
		ids = append(ids, d.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_ids":   ids,
		"count":      len(ids),
		"message":    fmt.Sprintf("Extracted %d files from %s", len(ids), req.Name),
		"session_id": sessionID,
	})
}

func (s *Server) validateSRS(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDocument(r.Context(), r.URL.Query().Get("file_id"))
	if err != nil || d.Kind != models.DocumentKindSRS {
		writeError(w, http.StatusNotFound, "SRS file not found")
		return
	}
	writeJSON(w, http.StatusOK, docs.ValidateSRS(docs.ExtractSRSText(*d)))
}

func (s *Server) downloadZip(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	ds, err := s.store.ListDocuments(r.Context(), sessionID, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(ds) == 0 {
		writeError(w, http.StatusNotFound, msgNoFiles)
		return
	}
	data, err := docs.BuildZip(values(ds))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, docs.ZipName(sessionID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) sessionFiles(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	ds, err := s.store.ListDocuments(r.Context(), sessionID, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	listed := values(ds)
	for i := range listed {
		listed[i].Content = ""
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"files":      listed,
		"stats":      docs.Stats(listed),
	})
}
