package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

const nonceMaxAge = 2 * 60 // 2 minutes, matches the stored nonce TTL

type AuthHandler struct {
	authService  ports.AuthService
	cookieDomain string
	secure       bool
}

func NewAuthHandler(authService ports.AuthService, cookieDomain string, secure bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieDomain: cookieDomain,
		secure:       secure,
	}
}

type verifyRequest struct {
	ports.WalletPayload
	UserDetails ports.UserDetails `json:"userDetails"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	IsValid      bool   `json:"isValid"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

// Nonce issues a sign-in nonce and pins it to the client with a short-lived cookie.
func (h *AuthHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := h.authService.GenerateNonce(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookie,
		Value:    nonce,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: h.sameSite(),
		MaxAge:   nonceMaxAge,
	})

	render.JSON(w, r, nonceResponse{Nonce: nonce})
}

// Verify checks a signed wallet message against the nonce cookie and signs
// the user in.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(nonceCookie)
	if err != nil || cookie.Value == "" {
		respondError(w, r, fmt.Errorf("%w: no nonce found in cookies", domain.ErrInvalidInput))
		return
	}

	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	accessToken, refreshToken, err := h.authService.LoginWithWallet(r.Context(), req.WalletPayload, cookie.Value, req.UserDetails)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// A nonce is good for a single sign-in.
	http.SetCookie(w, &http.Cookie{Name: nonceCookie, MaxAge: -1, Path: "/", Domain: h.cookieDomain})
	h.setAccessTokenCookie(w, accessToken)
	h.setRefreshTokenCookie(w, refreshToken)

	render.JSON(w, r, tokenResponse{IsValid: true, AccessToken: accessToken, RefreshToken: refreshToken})
}

// Refresh creates a new access token from the refresh token cookie or body.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshToken(r)
	if token == "" {
		respondError(w, r, errUnauthenticated)
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshAccessToken(r.Context(), token)
	if err != nil {
		entryFrom(r).WithError(err).Debug("refresh rejected")
		h.expireCookies(w)
		respondError(w, r, errUnauthenticated)
		return
	}

	h.setAccessTokenCookie(w, accessToken)

	// If refresh token was rotated, update it too
	resp := tokenResponse{IsValid: true, AccessToken: accessToken}
	if refreshToken != "" && refreshToken != token {
		h.setRefreshTokenCookie(w, refreshToken)
		resp.RefreshToken = refreshToken
	}

	render.JSON(w, r, resp)
}

// Logout revokes the refresh token and clears the auth cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.refreshToken(r); token != "" {
		if err := h.authService.Logout(r.Context(), token); err != nil {
			entryFrom(r).WithError(err).Warn("failed to revoke refresh token")
		}
	}

	h.expireCookies(w)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *AuthHandler) refreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if r.ContentLength == 0 {
		return ""
	}
	var req refreshRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func (h *AuthHandler) sameSite() http.SameSite {
	if h.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

func (h *AuthHandler) setAccessTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: h.sameSite(),
		MaxAge:   15 * 60, // 15 minutes
	})
}

func (h *AuthHandler) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: h.sameSite(),
		MaxAge:   7 * 24 * 60 * 60, // 7 days
	})
}

func (h *AuthHandler) expireCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/", Domain: h.cookieDomain})
	http.SetCookie(w, &http.Cookie{Name: refreshTokenCookie, MaxAge: -1, Path: "/", Domain: h.cookieDomain})
}
