package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"parstock/internal/app"
	"parstock/internal/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	authCookie = "auth_token"
	sessionTTL = 8 * time.Hour
)

type principalKey struct{}

// principalFromContext returns the Principal stored by RequireAuth.
func principalFromContext(ctx context.Context) (core.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(core.Principal)
	return p, ok
}

// jwtClaims is the JWT payload. Only the user id is carried; role and grants
// are reloaded on every request.
type jwtClaims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

func (h *Handler) parseToken(raw string) (*jwtClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.opts.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	return claims, nil
}

func (h *Handler) signToken(userID int, now time.Time) (string, error) {
	claims := &jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.opts.JWTSecret))
}

// RequireAuth validates the auth_token cookie, reloads the user and stores the
// resulting Principal in the request context. Returns 401 if the token is
// absent or invalid, or the user is no longer active.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookie)
		if err != nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		claims, err := h.parseToken(cookie.Value)
		if err != nil {
			writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		who, err := h.svc.ResolvePrincipal(r.Context(), claims.UserID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, who)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// who returns the request's Principal. Routes behind RequireAuth always have one.
func who(r *http.Request) core.Principal {
	p, _ := principalFromContext(r.Context())
	return p
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// login handles POST /api/auth/login.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req app.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	signed, err := h.signToken(session.UserID, time.Now())
	if err != nil {
		writeError(w, r, "token generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	h.setAuthCookie(w, signed, int(sessionTTL.Seconds()))
	writeJSON(w, session)
}

// logout handles POST /api/auth/logout; it clears the auth cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.setAuthCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/user.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), who(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, user)
}

// csrf handles GET /api/auth/csrf. The token is readable by scripts so the
// client can echo it in X-CSRFToken.
func (h *Handler) csrf(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	if c, err := r.Cookie(csrfCookie); err == nil && validRequestID.MatchString(c.Value) {
		token = c.Value
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookie,
		Value:    token,
		Path:     "/",
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
	writeJSON(w, app.CSRFResult{CSRFToken: token})
}
