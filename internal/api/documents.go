package api

import (
	"net/http"
)

// handleDocumentUploadURL (POST /v1/documents/upload-url)
func (h *Handler) handleDocumentUploadURL(w http.ResponseWriter, r *http.Request) {
	upload, err := h.documents.UploadURL(r.Context(), userFromContext(r).ID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, upload)
}

// handleDocumentDownloadURL (GET /v1/documents/download-url?fileKey=)
func (h *Handler) handleDocumentDownloadURL(w http.ResponseWriter, r *http.Request) {
	fileKey := r.URL.Query().Get("fileKey")
	if fileKey == "" {
		h.respondWithError(w, http.StatusBadRequest, "Parameter 'fileKey' is required")
		return
	}

	url, err := h.documents.DownloadURL(r.Context(), userFromContext(r).ID, fileKey)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"downloadUrl": url})
}

// handleDocumentExtract (POST /v1/documents/extract)
func (h *Handler) handleDocumentExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text" validate:"required,max=20000"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}

	fields, err := h.documents.Extract(r.Context(), req.Text)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"fields": fields})
}
