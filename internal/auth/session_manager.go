package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bookloft/backend/internal/logging"
	"github.com/bookloft/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided token does not map to a stored session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnauthorized indicates the bearer credential is missing, unknown, or
	// expired. The three cases are deliberately indistinguishable to callers.
	ErrUnauthorized = errors.New("unauthorized")
)

// Default session lifetime policy. Renewal must happen strictly before
// expiry, so RenewAfter is always smaller than Expiry.
const (
	DefaultExpiry     = 7 * 24 * time.Hour
	DefaultRenewAfter = 24 * time.Hour
)

// SessionStore persists issued session tokens so they survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	Find(ctx context.Context, token string) (models.Session, error)
	Extend(ctx context.Context, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Manager manages the lifecycle of issued session tokens backed by a
// persistent store.
type Manager struct {
	expiry     time.Duration
	renewAfter time.Duration

	store   SessionStore
	nowFunc func() time.Time
}

// NewManager constructs a Manager with the provided expiry policy.
func NewManager(expiry, renewAfter time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if renewAfter >= expiry {
		panic("auth: renew window must be shorter than the session expiry")
	}
	return &Manager{
		expiry:     expiry,
		renewAfter: renewAfter,
		store:      store,
	}
}

// NewSession builds an unsaved session for the provided user. The caller
// persists it inside the enclosing unit of work, so a crash between the user
// write and the session write leaves no orphaned session.
func (m *Manager) NewSession(userID int64) (models.Session, error) {
	if userID == 0 {
		return models.Session{}, errors.New("user id must be provided")
	}

	token, err := randomToken()
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.expiry),
	}, nil
}

// Resolve maps a bearer token to the owning user id. An absent or expired
// session yields ErrUnauthorized. A session deep enough into its lifetime is
// renewed with a single immediate write, amortizing renewal to roughly one
// write per renew window rather than one per request.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}

	session, err := m.store.Find(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return 0, ErrUnauthorized
		}
		return 0, fmt.Errorf("resolve session: %w", err)
	}

	now := m.now()
	if !session.ExpiresAt.After(now) {
		return 0, ErrUnauthorized
	}

	// Renew once the session is older than expiry-renewAfter. The inequality
	// is anchored on the issue time recovered from expires_at.
	if session.ExpiresAt.Add(-m.expiry).Add(m.renewAfter).Before(now) {
		if err := m.store.Extend(ctx, session.Token, now.Add(m.expiry)); err != nil {
			// A lost renewal only shortens the sliding window; the request
			// itself is still authorized.
			logging.FromContext(ctx).Warn("session renewal failed", "error", err)
		}
	}

	return session.UserID, nil
}

// Revoke removes the provided token from the session store.
func (m *Manager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	_ = m.store.Delete(ctx, token)
}

// SweepExpired deletes sessions whose expiry has passed and reports how many
// rows were removed.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

// WithNowFunc overrides the time source. Useful for tests.
func (m *Manager) WithNowFunc(now func() time.Time) *Manager {
	m.nowFunc = now
	return m
}

func (m *Manager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc()
	}
	return time.Now().UTC()
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
