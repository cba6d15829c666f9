package api

import (
	"net/http"
)

// handleAdminLogin (POST /admin/login)
func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password" validate:"required"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}

	token, err := h.admin.Login(req.Password)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}

	http.SetCookie(w, h.adminCookie(token, adminCookieMaxAge))
	h.respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleAdminLogout (POST /admin/logout)
func (h *Handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.adminCookie("", -1))
	h.respondWithJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleAdminUsers (GET /admin/users)
func (h *Handler) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, users)
}

// handleAdminProfiles (GET /admin/profiles)
func (h *Handler) handleAdminProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.admin.ListProfiles(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, profiles)
}

func (h *Handler) handleAdminBan(banned bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.idParam(w, r, "id")
		if !ok {
			return
		}
		if err := h.admin.SetBanned(r.Context(), id, banned); err != nil {
			h.respondWithServiceError(w, r, err)
			return
		}
		h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"id": id, "banned": banned})
	}
}

// handleAdminStats (GET /admin/stats)
func (h *Handler) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, stats)
}
