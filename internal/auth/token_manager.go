package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

var (
	// ErrNoToken indicates no credential was presented at all.
	ErrNoToken = errors.New("no token presented")
	// ErrInvalidToken indicates the token failed signature or expiry checks,
	// or references an account that no longer exists.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked indicates a refresh token that verified cryptographically
	// but no longer matches the value persisted for the account. This covers
	// logout and tokens superseded by a later refresh.
	ErrTokenRevoked = errors.New("refresh token revoked")
)

// UserStore captures the persistence the token manager needs: resolving
// accounts and pinning the currently valid refresh token to them.
type UserStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID string, token *string) error
}

// AccessClaims are carried inside access tokens so protected handlers can
// render profile data without a user lookup on every request.
type AccessClaims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues, rotates and validates session token pairs. Tokens are
// stateless HS256 JWTs; refresh tokens are additionally gated by equality
// with the value persisted on the user record, which makes them revocable
// server-side while keeping access-token checks free of session storage.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      UserStore

	now func() time.Time
}

// NewManager constructs a Manager signing tokens with the provided secret.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, users UserStore) *Manager {
	if users == nil {
		panic("auth: user store must not be nil")
	}
	if secret == "" {
		panic("auth: signing secret must not be empty")
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		users:      users,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new token pair for the user and persists the refresh token
// on the account, superseding any previously issued pair.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	if user.ID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	accessExpiry := now.Add(m.accessTTL)
	refreshExpiry := now.Add(m.refreshTTL)

	accessClaims := AccessClaims{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(m.secret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshClaims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(refreshExpiry),
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(m.secret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// verify and match the value persisted on the account; rotation makes the old
// token unusable the moment the new pair is persisted.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, models.User, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, models.User{}, ErrNoToken
	}

	claims := jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(refreshToken, &claims, m.keyFunc, jwt.WithValidMethods([]string{"HS256"})); err != nil {
		return models.SessionTokens{}, models.User{}, ErrInvalidToken
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, models.User{}, ErrTokenRevoked
		}
		return models.SessionTokens{}, models.User{}, fmt.Errorf("load user for refresh: %w", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return models.SessionTokens{}, models.User{}, ErrTokenRevoked
	}

	tokens, err := m.Issue(ctx, user)
	if err != nil {
		return models.SessionTokens{}, models.User{}, err
	}

	return tokens, user, nil
}

// Revoke clears the persisted refresh token for the user, invalidating all
// outstanding refresh tokens immediately. Already-issued access tokens stay
// valid until they expire; that window is a property of stateless tokens.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id must be provided")
	}
	if err := m.users.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Authenticate validates a bearer access token and resolves the live account
// it references.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	if accessToken == "" {
		return models.User{}, ErrNoToken
	}

	claims := AccessClaims{}
	if _, err := jwt.ParseWithClaims(accessToken, &claims, m.keyFunc, jwt.WithValidMethods([]string{"HS256"})); err != nil {
		return models.User{}, ErrInvalidToken
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, fmt.Errorf("load user for access token: %w", err)
	}

	return user, nil
}

func (m *Manager) keyFunc(*jwt.Token) (any, error) {
	return m.secret, nil
}
