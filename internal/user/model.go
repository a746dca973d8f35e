package user

import (
	"time"

	"go-useradmin/internal/role"
)

type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Username     string      `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string      `gorm:"column:password;size:128;not null" json:"-"`
	Name         string      `gorm:"size:64" json:"name"`
	Email        string      `gorm:"size:128" json:"email"`
	Age          int         `json:"age"`
	Roles        []role.Role `gorm:"many2many:user_roles" json:"roles"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(role.Admin)
}

func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
