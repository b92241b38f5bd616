// Package auth authenticates users and tracks their login sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

const (
	DefaultSessionTTL = 14 * 24 * time.Hour
	MinPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = fmt.Errorf("password must have at least %d characters", MinPasswordLength)
	ErrNoSession          = errors.New("no valid session")
)

// Principal is the authenticated user a request acts for.
type Principal struct {
	UserID   int64
	Username string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Store is the persistence auth needs.
type Store interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error)
	GetCredentials(ctx context.Context, username string) (core.User, string, error)
	SetPasswordHash(ctx context.Context, userID int64, hash string) error
	CreateSession(ctx context.Context, token string, userID int64, now, expiresAt time.Time) error
	SessionUser(ctx context.Context, token string, now time.Time) (core.User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Session is an issued login token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

func NewService(store Store, ttl time.Duration, logger *log.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a user with the given password.
func (s *Service) Register(ctx context.Context, u core.User, password string) (core.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return core.User{}, err
	}
	return s.store.CreateUser(ctx, u, hash)
}

// SetPassword replaces username's password.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	u, _, err := s.store.GetCredentials(ctx, username)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.SetPasswordHash(ctx, u.ID, hash)
}

// Login verifies the credentials and issues a session. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (Session, Principal, error) {
	u, hash, err := s.store.GetCredentials(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.WarnContext(ctx, "Login failed", log.FieldOperation, log.OpLogin, "reason", "unknown user")
		return Session{}, Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, Principal{}, fmt.Errorf("login: %w", err)
	}
	if !CheckPassword(hash, password) {
		s.logger.WarnContext(ctx, "Login failed", log.FieldOperation, log.OpLogin, log.FieldUserID, u.ID)
		return Session{}, Principal{}, ErrInvalidCredentials
	}

	now := s.now()
	sess := Session{Token: uuid.NewString(), ExpiresAt: now.Add(s.ttl)}
	if err := s.store.CreateSession(ctx, sess.Token, u.ID, now, sess.ExpiresAt); err != nil {
		return Session{}, Principal{}, err
	}

	s.logger.InfoContext(ctx, "User logged in", log.FieldOperation, log.OpLogin, log.FieldUserID, u.ID)
	return sess, Principal{UserID: u.ID, Username: u.Username}, nil
}

// Authenticate resolves a session token to its principal.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrNoSession
	}
	u, err := s.store.SessionUser(ctx, token, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return Principal{}, ErrNoSession
	}
	if err != nil {
		return Principal{}, fmt.Errorf("authenticate: %w", err)
	}
	return Principal{UserID: u.ID, Username: u.Username}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User logged out", log.FieldOperation, log.OpLogout)
	return nil
}

// PruneSessions removes expired tokens.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}
