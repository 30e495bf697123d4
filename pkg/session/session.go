// Package session holds the client-side state that outlives a single request:
// the bearer token, the serialized user profile, the "expired" flag set by a
// forced logout, and the active dashboard tab. None of it is authoritative;
// the remote API decides what a token may do.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Persisted keys.
const (
	KeyToken     = "token"
	KeyUser      = "user"
	KeyExpired   = "expired"
	KeyActiveTab = "activeTab"
)

// Roles reported by the API.
const (
	RoleSeller   = "seller"
	RoleCustomer = "customer"
)

// User is the profile returned by /sign-in. It drives role-based branching
// only.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status,omitempty"`
}

// IsSeller reports whether the user may manage products.
func (u *User) IsSeller() bool {
	return u != nil && u.Role == RoleSeller
}

// Session wraps a Store with typed accessors.
type Session struct {
	mu     sync.Mutex
	store  Store
	logger *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New binds a Session to store. A nil store means an in-memory one.
func New(store Store, opts ...Option) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Session{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the bearer token or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(KeyToken)
}

// User decodes the stored profile. It returns nil, nil when signed out.
func (s *Session) User() (*User, error) {
	s.mu.Lock()
	raw := s.getLocked(KeyUser)
	s.mu.Unlock()
	if raw == "" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("session: decode user: %w", err)
	}
	return &u, nil
}

// SignedIn reports whether a token is present.
func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// SetCredentials stores a fresh token and profile and clears the expired flag.
func (s *Session) SetCredentials(token string, user User) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("session: token is required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(KeyToken, token); err != nil {
		return err
	}
	if err := s.store.Set(KeyUser, string(raw)); err != nil {
		return err
	}
	if err := s.store.Delete(KeyExpired); err != nil {
		return err
	}
	s.logger.Debug("session credentials stored", zap.Int64("user_id", user.ID))
	return nil
}

// Teardown removes the token and profile. When forced is true the expired
// flag is raised so the sign-in screen can explain why the user is there.
func (s *Session) Teardown(forced bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(KeyToken, KeyUser); err != nil {
		return err
	}
	if forced {
		if err := s.store.Set(KeyExpired, "true"); err != nil {
			return err
		}
	}
	s.logger.Debug("session torn down", zap.Bool("forced", forced))
	return nil
}

// Expired reports whether the last session ended with a forced logout.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(KeyExpired) == "true"
}

// ClearExpired drops the expired flag once it has been shown.
func (s *Session) ClearExpired() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(KeyExpired)
}

// ActiveTab returns the remembered UI tab, or "" when unset.
func (s *Session) ActiveTab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(KeyActiveTab)
}

// SetActiveTab remembers a UI tab preference.
func (s *Session) SetActiveTab(tab string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tab == "" {
		return s.store.Delete(KeyActiveTab)
	}
	return s.store.Set(KeyActiveTab, tab)
}

func (s *Session) getLocked(key string) string {
	v, err := s.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session read failed", zap.String("key", key), zap.Error(err))
		}
		return ""
	}
	return v
}
