package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	entryKey  contextKey = "log_entry"

	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	nonceCookie        = "siwe"
)

// RequestLogger logs one line per request and exposes a request scoped
// entry to handlers.
func RequestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := logger.WithFields(logrus.Fields{
				"component":  "http",
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), entryKey, entry)))

			entry.WithFields(logrus.Fields{
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start),
			}).Info("request handled")
		})
	}
}

func entryFrom(r *http.Request) *logrus.Entry {
	if entry, ok := r.Context().Value(entryKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Authenticator requires a valid access token, taken from the Authorization
// header or the access token cookie.
func Authenticator(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, r, errUnauthenticated)
				return
			}

			claims, err := auth.ParseAccessToken(token)
			if err != nil {
				entryFrom(r).WithError(err).Debug("rejected access token")
				respondError(w, r, errUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func claimsFrom(r *http.Request) (*ports.Claims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*ports.Claims)
	return claims, ok
}
