// Package session issues signed session cookies and keeps per-session state
// alive between requests for the in-memory storage backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"todo-server/internal/domain"
)

// CookieName is the name of the session cookie set on sign-in.
const CookieName = "todo_session"

var (
	// ErrInvalidToken indicates the presented session token failed validation.
	ErrInvalidToken = errors.New("invalid session token")
)

// State is the mutable data carried by one session. TodoLists stays nil until
// the in-memory backend seeds it on first use.
type State struct {
	TodoLists []domain.TodoList
}

// Session binds a request to its authenticated user and server-side state.
type Session struct {
	ID       string
	Username string
	State    *State
}

type claims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

type entry struct {
	state     *State
	expiresAt time.Time
}

// Manager signs and validates session tokens and owns the server-side state
// keyed by session id.
type Manager struct {
	secret []byte
	ttl    time.Duration
	logger logrus.FieldLogger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewManager(secret string, ttl time.Duration, logger logrus.FieldLogger) *Manager {
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Issue creates a fresh session for the user and returns the signed token to
// be set as a cookie.
func (m *Manager) Issue(username string) (string, *Session, error) {
	sid := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(m.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}

	state := &State{}
	m.mu.Lock()
	m.entries[sid] = &entry{state: state, expiresAt: expiresAt}
	m.mu.Unlock()

	return signed, &Session{ID: sid, Username: username, State: state}, nil
}

// Resolve validates a token and returns the session it names. The server-side
// entry is authoritative: a revoked or restart-lost session fails validation
// even if the token signature is still good.
func (m *Manager) Resolve(tokenString string) (*Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || c.SID == "" || c.Subject == "" {
		return nil, ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[c.SID]
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Session{ID: c.SID, Username: c.Subject, State: e.state}, nil
}

// Revoke drops a session's server-side state. The cookie is cleared by the
// caller.
func (m *Manager) Revoke(sid string) {
	m.mu.Lock()
	delete(m.entries, sid)
	m.mu.Unlock()
}

// Start launches a janitor that drops expired session state until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.pruneExpired(now); n > 0 && m.logger != nil {
					m.logger.Debugf("pruned %d expired sessions", n)
				}
			}
		}
	}()
}

func (m *Manager) pruneExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for sid, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, sid)
			pruned++
		}
	}
	return pruned
}
