package role

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-useradmin/internal/metrics"
)

// Service owns the role set and reconciles the canonical roles.
type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log.With().Str("component", "roles").Logger()}
}

func (s *Service) store() *Store {
	return NewStore(s.db)
}

// EnsureDefaultRoles creates any canonical role that is missing. Calling it
// again is a no-op. It assumes a single writer, which holds at bootstrap.
func (s *Service) EnsureDefaultRoles(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := NewStore(tx)
		for _, name := range Defaults {
			_, err := st.FindByName(ctx, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			if err := st.Create(ctx, &Role{Name: name}); err != nil {
				return err
			}
			metrics.RolesCreatedTotal.Inc()
			s.log.Info().Str("role", name).Msg("created default role")
		}
		return nil
	})
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store().List(ctx)
}

func (s *Service) FindByID(ctx context.Context, id uint) (*Role, error) {
	return s.store().FindByID(ctx, id)
}

func (s *Service) FindByName(ctx context.Context, name string) (*Role, error) {
	return s.store().FindByName(ctx, name)
}

// RolesByNames resolves names to roles and drops the ones that don't exist.
func (s *Service) RolesByNames(ctx context.Context, names []string) ([]Role, error) {
	roles, err := s.store().FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(names) {
		found := make(map[string]bool, len(roles))
		for _, r := range roles {
			found[r.Name] = true
		}
		for _, n := range names {
			if !found[n] {
				s.log.Warn().Str("role", n).Msg("role not found")
			}
		}
	}
	return roles, nil
}

func (s *Service) SaveRole(ctx context.Context, r *Role) error {
	s.log.Info().Str("role", r.Name).Msg("saving role")
	return s.store().Create(ctx, r)
}

func (s *Service) UpdateRole(ctx context.Context, r *Role) error {
	s.log.Info().Uint("role_id", r.ID).Str("role", r.Name).Msg("updating role")
	return s.store().Update(ctx, r)
}

func (s *Service) DeleteRole(ctx context.Context, id uint) error {
	s.log.Info().Uint("role_id", id).Msg("deleting role")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return NewStore(tx).Delete(ctx, id)
	})
}
