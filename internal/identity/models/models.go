package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/secrets"
)

// Role gates privileged operations within a tenant.
type Role string

const (
	RoleAdmin   Role = "admin"   // tenant administration, token rotation, invoicing
	RoleAdvisor Role = "advisor" // service orders, estimates, portal tokens
	RoleTech    Role = "tech"    // attendance and time entries
)

// User is a staff account. Users always belong to exactly one tenant.
type User struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser hashes the password and normalizes the email.
func NewUser(tenantID uuid.UUID, email, name, password string, roles ...Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return &User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// HasRole reports whether the user carries the role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
