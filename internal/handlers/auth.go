package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// AuthHandler implements account registration and session endpoints.
type AuthHandler struct {
	Users        UserStore
	Sessions     SessionManager
	Limiter      RateLimiter
	CookieSecure bool
	NowFunc      func() time.Time
}

type signUpRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	User   models.User         `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

type tokensResponse struct {
	Tokens models.SessionTokens `json:"tokens"`
}

// SignUp handles POST /api/v1/auth/signup requests.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "signup") {
		respondJSON(ctx, w, http.StatusTooManyRequests, errorPayload("too many attempts, slow down"))
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid request body"))
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("username, email and password are required"))
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid email address"))
		return
	}

	if len(req.Password) < 8 {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("password must be at least 8 characters"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("signup failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to secure password"))
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Avatar:    strings.TrimSpace(req.Avatar),
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondJSON(ctx, w, http.StatusConflict, errorPayload("account already exists"))
			return
		}
		logger.Error("signup failed to create user", "error", err, "username", req.Username)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("failed to create account"))
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		logger.Error("signup failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create session"))
		return
	}

	h.setTokenCookies(w, tokens)
	respondJSON(ctx, w, http.StatusCreated, sessionResponse{User: user.Profile(), Tokens: tokens})
}

// Login handles POST /api/v1/auth/login requests. The caller may identify
// themselves by username or email.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, errorPayload("too many attempts, slow down"))
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("invalid request body"))
		return
	}

	identifier := strings.TrimSpace(strings.ToLower(req.Username))
	if identifier == "" {
		identifier = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondJSON(ctx, w, http.StatusBadRequest, errorPayload("username or email and password are required"))
		return
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("login unknown identifier", "identifier", identifier)
			respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("account does not exist"))
			return
		}
		logger.Error("login user lookup failed", "error", err)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to log in"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("wrong password"))
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, errorPayload("failed to create session"))
		return
	}

	h.setTokenCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, sessionResponse{User: user.Profile(), Tokens: tokens})
}

// Refresh handles POST /api/v1/auth/refresh requests, rotating the refresh
// token. The token is read from the body, falling back to the refresh cookie.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "refresh") {
		respondJSON(ctx, w, http.StatusTooManyRequests, errorPayload("too many attempts, slow down"))
		return
	}

	var req refreshRequest
	if r.Body != nil {
		// A missing or empty body is fine when the cookie is present.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, err := r.Cookie("refreshToken"); err == nil {
			token = cookie.Value
		}
	}

	tokens, _, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoToken):
			respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("refresh token is required"))
		case errors.Is(err, auth.ErrTokenRevoked):
			logger.Warn("refresh with revoked token")
			respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("session has been revoked"))
		case errors.Is(err, auth.ErrInvalidToken):
			logger.Warn("refresh with invalid token")
			respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("invalid refresh token"))
		default:
			logger.Error("refresh failed", "error", err)
			respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to refresh session"))
		}
		return
	}

	h.setTokenCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, tokensResponse{Tokens: tokens})
}

// Logout handles POST /api/v1/auth/logout requests. It clears the persisted
// refresh token, invalidating every outstanding refresh token for the user.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, errorPayload("authentication required"))
		return
	}

	if err := h.Sessions.Revoke(ctx, user.ID); err != nil {
		logger.Error("logout failed to revoke session", "error", err, "userId", user.ID)
		respondJSON(ctx, w, statusForStoreError(err), errorPayload("unable to log out"))
		return
	}

	h.clearTokenCookies(w)
	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h AuthHandler) setTokenCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    tokens.AccessToken,
		Path:     "/",
		Expires:  tokens.AccessExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    tokens.RefreshToken,
		Path:     "/",
		Expires:  tokens.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h AuthHandler) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func statusForStoreError(err error) int {
	if errors.Is(err, repositories.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
