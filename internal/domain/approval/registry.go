package approval

import (
	"fmt"
	"strings"

	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// RegistryConfig is the static reviewer configuration loaded at startup
type RegistryConfig struct {
	// Roles is the global enum of reviewer seats
	Roles []entity.RoleKey

	// ProfileReviewers is the ordered set every profile must be approved by
	ProfileReviewers []entity.RoleKey

	// Departments maps department-scoped roles (HODs) to their department code
	Departments map[entity.RoleKey]string
}

// DefaultRegistryConfig returns the portal's eight seats and the five HOD departments
func DefaultRegistryConfig() RegistryConfig {
	roles := []entity.RoleKey{
		entity.RoleHSHOD,
		entity.RoleCSEHOD,
		entity.RoleCSMHOD,
		entity.RoleCSDHOD,
		entity.RoleECEHOD,
		entity.RoleTPO,
		entity.RoleDean,
		entity.RoleDirector,
	}
	return RegistryConfig{
		Roles:            roles,
		ProfileReviewers: append([]entity.RoleKey(nil), roles...),
		Departments: map[entity.RoleKey]string{
			entity.RoleHSHOD:  "HS",
			entity.RoleCSEHOD: "CSE",
			entity.RoleCSMHOD: "CSM",
			entity.RoleCSDHOD: "CSD",
			entity.RoleECEHOD: "ECE",
		},
	}
}

// Registry answers which reviewer seats an entity requires
type Registry struct {
	roles            []entity.RoleKey
	known            map[entity.RoleKey]bool
	profileReviewers []entity.RoleKey
	departments      map[entity.RoleKey]string
}

// NewRegistry validates cfg and builds a registry
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if len(cfg.Roles) == 0 {
		return nil, fmt.Errorf("reviewer registry: role enum is empty")
	}

	r := &Registry{
		known:       make(map[entity.RoleKey]bool, len(cfg.Roles)),
		departments: make(map[entity.RoleKey]string, len(cfg.Departments)),
	}
	for _, role := range cfg.Roles {
		if role == "" {
			return nil, fmt.Errorf("reviewer registry: empty role key")
		}
		if r.known[role] {
			continue
		}
		r.known[role] = true
		r.roles = append(r.roles, role)
	}

	profile, err := r.ValidateRecipients(cfg.ProfileReviewers)
	if err != nil {
		return nil, fmt.Errorf("reviewer registry: profile reviewers: %w", err)
	}
	r.profileReviewers = profile

	for role, dept := range cfg.Departments {
		if !r.known[role] {
			return nil, fmt.Errorf("reviewer registry: department for unknown role %q", role)
		}
		r.departments[role] = strings.ToUpper(strings.TrimSpace(dept))
	}

	return r, nil
}

// MustNewRegistry is NewRegistry for static configuration known to be valid
func MustNewRegistry(cfg RegistryConfig) *Registry {
	r, err := NewRegistry(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Roles returns the global role enum in configured order
func (r *Registry) Roles() []entity.RoleKey {
	return append([]entity.RoleKey(nil), r.roles...)
}

// ProfileReviewers returns the fixed reviewer set for profiles
func (r *Registry) ProfileReviewers() []entity.RoleKey {
	return append([]entity.RoleKey(nil), r.profileReviewers...)
}

// IsValidRole reports whether role is in the global enum
func (r *Registry) IsValidRole(role entity.RoleKey) bool {
	return r.known[role]
}

// DepartmentFor returns the department of a department-scoped role
func (r *Registry) DepartmentFor(role entity.RoleKey) (string, bool) {
	dept, ok := r.departments[role]
	return dept, ok
}

// ValidateRecipients checks a reviewer list is a non-empty subset of the enum.
// Duplicates collapse to their first occurrence.
func (r *Registry) ValidateRecipients(recipients []entity.RoleKey) ([]entity.RoleKey, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", ErrInvalidRecipients)
	}

	seen := make(map[entity.RoleKey]bool, len(recipients))
	out := make([]entity.RoleKey, 0, len(recipients))
	for _, role := range recipients {
		if !r.known[role] {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidRecipients, role)
		}
		if seen[role] {
			continue
		}
		seen[role] = true
		out = append(out, role)
	}
	return out, nil
}

// RequiredReviewersFor returns the reviewer set for a new entity of kind.
// Profiles ignore recipients; letters use the author's validated recipients.
func (r *Registry) RequiredReviewersFor(kind entity.EntityKind, recipients []entity.RoleKey) ([]entity.RoleKey, error) {
	switch kind {
	case entity.KindProfile:
		return r.ProfileReviewers(), nil
	case entity.KindLetter:
		return r.ValidateRecipients(recipients)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEntity, kind)
	}
}
