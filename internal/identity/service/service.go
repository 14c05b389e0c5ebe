package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"shopcore/internal/identity/models"
	"shopcore/internal/sentinel"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/secrets"
)

// Store is the persistence surface for users.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// Claims is the session token payload. The tenant travels inside the signed
// token, so the scope middleware never trusts a tenant from the request.
type Claims struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Roles    []string  `json:"roles"`
	jwt.RegisteredClaims
}

// Service owns login and session token verification.
type Service struct {
	store      Store
	logger     *slog.Logger
	now        func() time.Time
	signingKey []byte
	sessionTTL time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSessionTTL overrides the default 12h session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

func New(store Store, signingKey []byte, opts ...Option) *Service {
	s := &Service{
		store:      store,
		now:        time.Now,
		signingKey: signingKey,
		sessionTTL: 12 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a staff account.
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, email, name, password string, roles ...models.Role) (*models.User, error) {
	user, err := models.NewUser(tenantID, email, name, password, roles...)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return user, nil
}

// Login verifies credentials and issues a signed session token. Wrong email
// and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	unauthorized := dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) && s.logger != nil {
			s.logger.ErrorContext(ctx, "user lookup failed", "error", err)
		}
		return "", nil, unauthorized
	}
	if err := secrets.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", nil, unauthorized
	}

	now := s.now().UTC()
	roles := make([]string, len(user.Roles))
	for i, r := range user.Roles {
		roles[i] = string(r)
	}
	claims := Claims{
		TenantID: user.TenantID,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	return token, user, nil
}

// Verify parses and validates a session token, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	unauthorized := dErrors.New(dErrors.CodeUnauthorized, "invalid session")

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return nil, unauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TenantID == uuid.Nil {
		return nil, unauthorized
	}
	return claims, nil
}

// UserID extracts the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// HasRole reports whether the session carries the role.
func (c *Claims) HasRole(role models.Role) bool {
	for _, r := range c.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}
