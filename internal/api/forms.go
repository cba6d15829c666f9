package api

import (
	"net/http"

	"norel-backend/internal/models"

	"github.com/google/uuid"
)

// handleListForms (GET /v1/forms)
func (h *Handler) handleListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.forms.List(r.Context(), userFromContext(r).ID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, forms)
}

// handleCreateForm (POST /v1/forms)
func (h *Handler) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	var def models.GeneratedForm
	if !h.decodeJSON(w, r, &def) {
		return
	}

	form, err := h.forms.Create(r.Context(), userFromContext(r).ID, &def)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, form)
}

// handleGetForm (GET /v1/forms/{id})
func (h *Handler) handleGetForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	form, err := h.forms.Get(r.Context(), userFromContext(r).ID, id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, form)
}

// handleDeleteForm (DELETE /v1/forms/{id})
func (h *Handler) handleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.forms.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerateForm (POST /v1/forms/generate)
func (h *Handler) handleGenerateForm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description" validate:"required,max=4000"`
		Save        bool   `json:"save"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}

	def, err := h.forms.Generate(r.Context(), req.Description)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	if !req.Save {
		h.respondWithJSON(w, http.StatusOK, def)
		return
	}

	form, err := h.forms.Create(r.Context(), userFromContext(r).ID, def)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, form)
}

// handleAutoFillForm (POST /v1/forms/{id}/autofill)
func (h *Handler) handleAutoFillForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		ProfileID string `json:"profileId" validate:"required,uuid"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}

	values, err := h.forms.AutoFill(r.Context(), userFromContext(r).ID, id, uuid.MustParse(req.ProfileID))
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"values": values})
}
