package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"norel-backend/internal/ai"
	"norel-backend/internal/auth"
	"norel-backend/internal/kiosk"
	"norel-backend/internal/models"
	"norel-backend/internal/repository"
	"norel-backend/internal/service"
	"norel-backend/internal/share"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Dependencies are the collaborators of the HTTP handlers. Documents and AI
// backed services handle their own disabled state.
type Dependencies struct {
	Users     *service.UserService
	Profiles  *service.ProfileService
	Shares    *service.ShareService
	Forms     *service.FormService
	Documents *service.DocumentService
	Admin     *service.AdminService
	Tokens    *auth.TokenService
	UserStore repository.UserStore
	Catalog   *kiosk.Catalog
	Logger    *zap.Logger

	AllowedOrigins []string
	// SecureCookies marks the admin session cookie Secure
	SecureCookies bool
}

// Handler holds the dependencies of the HTTP handlers
type Handler struct {
	users     *service.UserService
	profiles  *service.ProfileService
	shares    *service.ShareService
	forms     *service.FormService
	documents *service.DocumentService
	admin     *service.AdminService
	tokens    *auth.TokenService
	userStore repository.UserStore
	catalog   *kiosk.Catalog
	logger    *zap.Logger
	validate  *validator.Validate

	allowedOrigins []string
	secureCookies  bool
}

// NewHandler creates a Handler
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		users:          deps.Users,
		profiles:       deps.Profiles,
		shares:         deps.Shares,
		forms:          deps.Forms,
		documents:      deps.Documents,
		admin:          deps.Admin,
		tokens:         deps.Tokens,
		userStore:      deps.UserStore,
		catalog:        deps.Catalog,
		logger:         logger,
		validate:       validator.New(),
		allowedOrigins: deps.AllowedOrigins,
		secureCookies:  deps.SecureCookies,
	}
}

// === Response helpers ===

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to serialize response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"Internal server error"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithShareError reports a token decode failure with the text a kiosk
// shows to the operator
func (h *Handler) respondWithShareError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	kind := share.Kind(err)
	message := share.Message(err)

	switch {
	case errors.Is(err, share.ErrExpired):
		code = http.StatusGone
	case errors.Is(err, repository.ErrConsumed):
		code = http.StatusConflict
		kind = "consumed"
		message = "This code was already used. Ask the profile owner to share a fresh code."
	}

	h.respondWithJSON(w, code, map[string]interface{}{
		"received": true,
		"error": map[string]interface{}{
			"code":    code,
			"kind":    kind,
			"message": message,
		},
	})
}

// respondWithServiceError maps service errors to status codes. Details of
// unexpected errors are logged, never returned.
func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrConflict):
		h.respondWithError(w, http.StatusConflict, "A record with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		h.respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrBanned):
		h.respondWithError(w, http.StatusForbidden, "Account suspended")
	case errors.Is(err, service.ErrForbidden):
		h.respondWithError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrDisabled):
		h.respondWithError(w, http.StatusServiceUnavailable, "This feature is not configured")
	case errors.Is(err, share.ErrPayloadTooLarge):
		h.respondWithError(w, http.StatusUnprocessableEntity, "Profile is too large to share as a code")
	case errors.Is(err, kiosk.ErrUnknownTemplate):
		h.respondWithError(w, http.StatusNotFound, "Unknown form template")
	case errors.Is(err, kiosk.ErrUnknownField):
		h.respondWithError(w, http.StatusBadRequest, "Override names a field that is not on the form")
	case errors.Is(err, ai.ErrUpstream):
		h.logger.Warn("AI upstream failure", requestFields(r, zap.Error(err))...)
		h.respondWithError(w, http.StatusBadGateway, "The AI service is unavailable, please try again")
	case errors.Is(err, ai.ErrInvalidResponse):
		h.logger.Warn("AI response rejected", requestFields(r, zap.Error(err))...)
		h.respondWithError(w, http.StatusBadGateway, "The AI service returned an unusable answer, please try again")
	default:
		h.logger.Error("Request failed", requestFields(r, zap.Error(err))...)
		h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a JSON body into v and validates it
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid data: "+err.Error())
		return false
	}
	return true
}

func userFromContext(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
