package api

import (
	"net/http"
	"strconv"

	"norel-backend/internal/models"
	"norel-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// handleCreateProfile (POST /v1/profiles)
func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.Profile
	if !h.decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.Create(r.Context(), userFromContext(r).ID, &req)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, profile)
}

// handleListProfiles (GET /v1/profiles)
func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context(), userFromContext(r).ID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profiles)
}

// handleGetProfile (GET /v1/profiles/{id})
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.profiles.Get(r.Context(), userFromContext(r).ID, id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profile)
}

// handleUpdateProfile (PUT /v1/profiles/{id})
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var req models.Profile
	if !h.decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.Update(r.Context(), userFromContext(r).ID, id, &req)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profile)
}

// handleDeleteProfile (DELETE /v1/profiles/{id})
func (h *Handler) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.profiles.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleShareProfile (POST /v1/profiles/{id}/share)
func (h *Handler) handleShareProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	req := struct {
		Channel string `json:"channel" validate:"omitempty,oneof=qr nfc"`
	}{}
	if r.ContentLength != 0 && !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Channel == "" {
		req.Channel = service.ChannelQR
	}

	token, err := h.shares.Share(r.Context(), userFromContext(r).ID, id, req.Channel)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, token)
}

// handleShareQR (GET /v1/profiles/{id}/share/qr)
func (h *Handler) handleShareQR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	size := 0
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.respondWithError(w, http.StatusBadRequest, "Invalid size")
			return
		}
		size = n
	}

	png, token, err := h.shares.QRCode(r.Context(), userFromContext(r).ID, id, size)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Share-Expires-At", token.ExpiresAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleShareHistory (GET /v1/profiles/{id}/shares)
func (h *Handler) handleShareHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	records, err := h.shares.History(r.Context(), userFromContext(r).ID, id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, records)
}
