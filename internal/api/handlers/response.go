package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

// SessionHeader lets non-browser clients pass a session id explicitly.
const SessionHeader = "X-Session-ID"

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an AppError to a status code. The wrapped cause
// is never written to the client.
func respondWithAppError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := apperrors.As(err); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		case apperrors.ErrorTypeExternal, apperrors.ErrorTypeUnavailable:
			respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
			return
		}
	}
	respondWithError(w, http.StatusInternalServerError, fallback)
}

// intQuery reads a non-negative integer query parameter. Missing or invalid
// values yield def; the services clamp the range.
func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

// sessionID resolves the caller's session from header then cookie.
func sessionID(r *http.Request, cookieName string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// ensureSession returns the caller's session id, issuing a cookie with a new
// one when the request carries none.
func ensureSession(w http.ResponseWriter, r *http.Request, cookieName string) string {
	if id := sessionID(r, cookieName); id != "" {
		return id
	}
	if cookieName == "" {
		return ""
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// deviceInfo builds the analytics device metadata from request headers.
func deviceInfo(r *http.Request) entities.DeviceInfo {
	info := services.ParseUserAgent(r.UserAgent())
	info.Locale = primaryLocale(r.Header.Get("Accept-Language"))
	return info
}

// primaryLocale returns the first tag of an Accept-Language header.
func primaryLocale(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}
