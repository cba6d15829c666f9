package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"norel-backend/internal/kiosk"
	"norel-backend/internal/repository"
	"norel-backend/internal/share"
)

type scanResponse struct {
	Received  bool              `json:"received"`
	ProfileID string            `json:"profileId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	IssuedAt  *time.Time        `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

type fillRequest struct {
	TemplateID string `json:"templateId" validate:"required"`
	// Token is a scanned share code; Fields carries the envelope of an
	// earlier scan instead.
	Token     string            `json:"token"`
	Fields    map[string]string `json:"fields"`
	Overrides map[string]string `json:"overrides"`
}

type fillResponse struct {
	*kiosk.FilledForm
	Missing []string `json:"missing"`
}

// handleKioskScan (GET /kiosk?data=)
func (h *Handler) handleKioskScan(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")
	if data == "" {
		h.respondWithJSON(w, http.StatusOK, scanResponse{Received: false})
		return
	}

	env, err := h.shares.Scan(r.Context(), data)
	if err != nil {
		h.respondWithScanError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, scanResponse{
		Received:  true,
		ProfileID: env.ProfileID,
		Fields:    env.Fields,
		IssuedAt:  &env.IssuedAt,
		ExpiresAt: &env.ExpiresAt,
	})
}

// respondWithScanError separates a bad or spent code, which the operator can
// act on, from a failure of the nonce store behind it.
func (h *Handler) respondWithScanError(w http.ResponseWriter, r *http.Request, err error) {
	if !isShareFailure(err) {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.logger.Info("Share code rejected", requestFields(r, zapKind(err))...)
	h.respondWithShareError(w, err)
}

func isShareFailure(err error) bool {
	for _, target := range []error{
		share.ErrMalformedEncoding,
		share.ErrMalformedPayload,
		share.ErrSchemaViolation,
		share.ErrExpired,
		repository.ErrConsumed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleListTemplates (GET /v1/kiosk/templates)
func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.catalog.List())
}

// fill resolves a fill request into a filled form. It writes the error
// response itself and returns nil on failure.
func (h *Handler) fill(w http.ResponseWriter, r *http.Request) *kiosk.FilledForm {
	var req fillRequest
	if !h.decodeJSON(w, r, &req) {
		return nil
	}

	tpl, err := h.catalog.Get(req.TemplateID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return nil
	}

	var env *share.Envelope
	switch {
	case req.Token != "":
		env, err = h.shares.Scan(r.Context(), req.Token)
		if err != nil {
			h.respondWithScanError(w, r, err)
			return nil
		}
	case len(req.Fields) > 0:
		env = &share.Envelope{Fields: make(map[string]string, len(req.Fields))}
		for key, v := range req.Fields {
			if share.Allowed(key) {
				env.Fields[key] = v
			}
		}
	}

	form := kiosk.Fill(env, tpl)
	if len(req.Overrides) > 0 {
		form, err = kiosk.ApplyOverrides(form, req.Overrides)
		if err != nil {
			h.respondWithServiceError(w, r, err)
			return nil
		}
	}
	return form
}

// handleKioskFill (POST /v1/kiosk/fill)
func (h *Handler) handleKioskFill(w http.ResponseWriter, r *http.Request) {
	form := h.fill(w, r)
	if form == nil {
		return
	}
	missing := form.Missing()
	if missing == nil {
		missing = []string{}
	}
	h.respondWithJSON(w, http.StatusOK, fillResponse{FilledForm: form, Missing: missing})
}

// handleKioskExport (POST /v1/kiosk/export)
func (h *Handler) handleKioskExport(w http.ResponseWriter, r *http.Request) {
	form := h.fill(w, r)
	if form == nil {
		return
	}

	now := time.Now()
	filename := fmt.Sprintf("%s-%s.txt", form.TemplateID, now.UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(kiosk.Export(form, now))
}
