package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"norel-backend/internal/share"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// contextKey is a private type to avoid context key collisions
type contextKey string

const userContextKey = contextKey("user")

const (
	adminCookieName   = "norel_admin"
	adminCookieMaxAge = 24 * 60 * 60
)

// AuthMiddleware validates the bearer token and loads the user
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.respondWithError(w, http.StatusUnauthorized, "Authorization token missing")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.respondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		token, err := h.tokens.ValidateToken(parts[1])
		if err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := h.tokens.GetUserIDFromToken(token)
		if err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		// The user may have been deleted or banned since the token was issued
		user, err := h.userStore.GetUserByID(r.Context(), userID)
		if err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "Token user not found")
			return
		}
		if user.Banned {
			h.respondWithError(w, http.StatusForbidden, "Account suspended")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware requires a valid admin session cookie
func (h *Handler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(adminCookieName)
		if err != nil || cookie.Value == "" {
			h.respondWithError(w, http.StatusUnauthorized, "Admin session required")
			return
		}
		if err := h.tokens.ValidateAdminToken(cookie.Value); err != nil {
			h.respondWithError(w, http.StatusUnauthorized, "Admin session invalid or expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) adminCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     adminCookieName,
		Value:    value,
		Path:     "/admin",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

// RequestLogger writes one log entry per request
func (h *Handler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			h.logger.Info("HTTP request",
				requestFields(r,
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)...)
		}()

		next.ServeHTTP(ww, r)
	})
}

// requestFields returns the request identifying log fields followed by extra.
// Query strings are never logged since share tokens travel in them.
func requestFields(r *http.Request, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	return append(fields, extra...)
}

func zapKind(err error) zap.Field {
	return zap.String("kind", share.Kind(err))
}
