package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-useradmin/internal/role"
)

// Store is the gorm-backed user repository. Lookups load roles eagerly.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Preload("Roles").First(&u, id).Error; err != nil {
		return nil, notFound(err, "find user by id")
	}
	return &u, nil
}

// FindByUsername matches the username exactly.
func (s *Store) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "find user by username")
	}
	return &u, nil
}

func (s *Store) CountByUsername(ctx context.Context, username string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users by username: %w", err)
	}
	return n, nil
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Preload("Roles").Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Insert writes u and its user_roles rows. The roles themselves must exist.
func (s *Store) Insert(ctx context.Context, u *User) error {
	if err := s.db.WithContext(ctx).Omit("Roles.*").Create(u).Error; err != nil {
		return duplicate(err, "insert user")
	}
	return nil
}

// Update saves the scalar fields of u and replaces its role set with roles.
func (s *Store) Update(ctx context.Context, u *User, roles []role.Role) error {
	db := s.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(u).Error; err != nil {
		return duplicate(err, "update user")
	}
	assoc := db.Model(u).Association("Roles")
	var err error
	if len(roles) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(roles)
	}
	if err != nil {
		return fmt.Errorf("replace user roles: %w", err)
	}
	u.Roles = roles
	return nil
}

// DeleteByID removes the user and its user_roles rows. A missing id is not an
// error; the returned count is zero.
func (s *Store) DeleteByID(ctx context.Context, id uint) (int64, error) {
	res := s.db.WithContext(ctx).Select("Roles").Delete(&User{ID: id})
	if res.Error != nil {
		return 0, fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func duplicate(err error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateUsername
	}
	return fmt.Errorf("%s: %w", op, err)
}
