package role

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("role not found")
	ErrInUse    = errors.New("role is assigned to users")
)

// Store is the gorm-backed role repository. It is cheap to build, so callers
// running inside a transaction wrap the tx handle with NewStore.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) List(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := s.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (s *Store) FindByID(ctx context.Context, id uint) (*Role, error) {
	var r Role
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err, "find role by id")
	}
	return &r, nil
}

func (s *Store) FindByName(ctx context.Context, name string) (*Role, error) {
	var r Role
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&r).Error; err != nil {
		return nil, notFound(err, "find role by name")
	}
	return &r, nil
}

// FindByIDs returns the roles that exist among ids. Unknown ids are skipped.
func (s *Store) FindByIDs(ctx context.Context, ids []uint) ([]Role, error) {
	if len(ids) == 0 {
		return []Role{}, nil
	}
	var roles []Role
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("find roles by ids: %w", err)
	}
	return roles, nil
}

// FindByNames returns the roles that exist among names. Unknown names are skipped.
func (s *Store) FindByNames(ctx context.Context, names []string) ([]Role, error) {
	if len(names) == 0 {
		return []Role{}, nil
	}
	var roles []Role
	if err := s.db.WithContext(ctx).Where("name IN ?", names).Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("find roles by names: %w", err)
	}
	return roles, nil
}

func (s *Store) Create(ctx context.Context, r *Role) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create role %q: %w", r.Name, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, r *Role) error {
	res := s.db.WithContext(ctx).Model(&Role{}).Where("id = ?", r.ID).Update("name", r.Name)
	if res.Error != nil {
		return fmt.Errorf("update role %d: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete refuses to remove a role that any user still references.
func (s *Store) Delete(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	var refs int64
	if err := db.Table(JoinTable).Where("role_id = ?", id).Count(&refs).Error; err != nil {
		return fmt.Errorf("count role references: %w", err)
	}
	if refs > 0 {
		return ErrInUse
	}
	if err := db.Delete(&Role{}, id).Error; err != nil {
		return fmt.Errorf("delete role %d: %w", id, err)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
