package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// ErrInvalidCredentials is returned for unknown users, bad passwords and
// deactivated accounts alike; callers must not distinguish them.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a bearer token is unknown or expired.
var ErrInvalidToken = errors.New("invalid token")

// TokenStore is the slice of the hybrid store the auth manager needs:
// Redis-backed token records and the Postgres user table.
type TokenStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	DeleteKeys(ctx context.Context, keys ...string) error
	GetUserAccount(ctx context.Context, username string) (*model.UserAccount, error)
}

// Manager issues and verifies opaque bearer tokens. Tokens are random
// 20-byte hex strings stored in Redis under authtok:<token> with a sliding
// TTL; passwords are compared against hex(HMAC-SHA256(pepper, password)).
type Manager struct {
	logger   *zap.Logger
	store    TokenStore
	pepper   []byte
	tokenTTL time.Duration
}

// NewManager constructs the token manager. pepper comes from Secrets Manager
// at startup.
func NewManager(logger *zap.Logger, store TokenStore, pepper string, tokenTTL time.Duration) *Manager {
	return &Manager{
		logger:   logger,
		store:    store,
		pepper:   []byte(pepper),
		tokenTTL: tokenTTL,
	}
}

// HashPassword returns hex(HMAC-SHA256(pepper, password)), the format
// stored in auth.user_account.password_hash.
func (m *Manager) HashPassword(password string) string {
	h := hmac.New(sha256.New, m.pepper)
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

func tokenKey(token string) string { return "authtok:" + token }

// IssueToken validates the credentials and returns a fresh token.
func (m *Manager) IssueToken(ctx context.Context, username, password string) (string, error) {
	user, err := m.store.GetUserAccount(ctx, username)
	if err != nil {
		m.logger.Debug("auth.user_lookup_failed", zap.String("username", username), zap.Error(err))
		return "", ErrInvalidCredentials
	}
	if !user.Active {
		return "", ErrInvalidCredentials
	}

	want := m.HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(want), []byte(user.PasswordHash)) != 1 {
		return "", ErrInvalidCredentials
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	token := hex.EncodeToString(raw)

	au := model.AuthUser{ID: user.ID, Username: user.Username}
	if err := m.store.SetJSON(ctx, tokenKey(token), au, m.tokenTTL); err != nil {
		return "", fmt.Errorf("token store failed: %w", err)
	}

	m.logger.Info("auth.token_issued", zap.String("username", username))
	return token, nil
}

// VerifyToken resolves a token to its user and slides the TTL forward.
func (m *Manager) VerifyToken(ctx context.Context, token string) (*model.AuthUser, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var au model.AuthUser
	if err := m.store.GetJSON(ctx, tokenKey(token), &au); err != nil {
		return nil, ErrInvalidToken
	}

	// Sliding expiry: every verified use pushes the window out.
	if err := m.store.SetJSON(ctx, tokenKey(token), au, m.tokenTTL); err != nil {
		m.logger.Warn("auth.token_slide_failed", zap.Error(err))
	}
	return &au, nil
}

// RevokeToken drops a token; used by logout.
func (m *Manager) RevokeToken(ctx context.Context, token string) error {
	return m.store.DeleteKeys(ctx, tokenKey(token))
}
