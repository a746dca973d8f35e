package role

import "strings"

// Canonical role names. Every deployment carries exactly one of each.
const (
	Admin = "ROLE_ADMIN"
	User  = "ROLE_USER"
)

// Defaults is the set EnsureDefaultRoles reconciles, in creation order.
var Defaults = []string{Admin, User}

// JoinTable links users to roles.
const JoinTable = "user_roles"

type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:32;not null" json:"name"`
}

// Label is the name without the ROLE_ prefix, as shown in the panel.
func (r Role) Label() string {
	return strings.TrimPrefix(r.Name, "ROLE_")
}
