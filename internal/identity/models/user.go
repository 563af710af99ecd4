package models

import (
	"slices"
	"time"

	id "finflow/pkg/domain"
)

// Role is a marker attached to a platform user. The workflow only cares
// about the financial-institution marker; the rest belong to the wider
// marketplace and pass through untouched.
type Role string

const (
	RoleBuyer                Role = "buyer"
	RoleSeller               Role = "seller"
	RoleFinancialInstitution Role = "financial_institution"
	RoleAdmin                Role = "admin"
)

// User is the directory record for a platform user. The workflow never
// creates users; it resolves them and mutates their role set.
type User struct {
	ID        id.UserID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []Role    `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries the given role marker.
func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// AddRole appends the role marker if absent. Idempotent.
func (u *User) AddRole(role Role, now time.Time) {
	if u.HasRole(role) {
		return
	}
	u.Roles = append(u.Roles, role)
	u.UpdatedAt = now
}

// RemoveRole drops the role marker if present. Idempotent.
func (u *User) RemoveRole(role Role, now time.Time) {
	idx := slices.Index(u.Roles, role)
	if idx < 0 {
		return
	}
	u.Roles = slices.Delete(u.Roles, idx, idx+1)
	u.UpdatedAt = now
}
