package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "shopcore/pkg/domain-errors"
)

var validSlug = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant is the root isolation boundary. Every domain record belongs to
// exactly one tenant; deleting a tenant cascades to all of its records.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTenant validates and builds a tenant. Tenants are immutable once
// created except for rename.
func NewTenant(name, slug string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name cannot be empty")
	}
	if len(name) > 255 {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant name must be 255 characters or less")
	}
	if !validSlug.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant slug must be lowercase letters, digits, and dashes")
	}
	return &Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
	}, nil
}

// Rename updates the display name. The slug never changes.
func (t *Tenant) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "tenant name cannot be empty")
	}
	if len(name) > 255 {
		return dErrors.New(dErrors.CodeValidation, "tenant name must be 255 characters or less")
	}
	t.Name = name
	return nil
}
