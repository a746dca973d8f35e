package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-useradmin/internal/metrics"
	"go-useradmin/internal/role"
)

// Service is the only writer of user records. Each mutating method runs in
// its own transaction.
type Service struct {
	db     *gorm.DB
	hasher Hasher
	log    zerolog.Logger
}

func NewService(db *gorm.DB, hasher Hasher, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		hasher: hasher,
		log:    log.With().Str("component", "accounts").Logger(),
	}
}

// DeleteOutcome reports what DeleteUser did. TerminateSession asks the caller
// to end the acting session because the actor deleted their own account.
type DeleteOutcome struct {
	Deleted          bool
	UserID           uint
	Username         string
	TerminateSession bool
}

// CreateUser stores a new account. Unknown role ids are dropped; an empty
// selection means ROLE_USER, or no roles at all if that role is missing.
func (s *Service) CreateUser(ctx context.Context, c Candidate, roleIDs []uint) (*User, error) {
	return s.create(ctx, c, func(rs *role.Store) ([]role.Role, error) {
		if len(roleIDs) > 0 {
			return rs.FindByIDs(ctx, roleIDs)
		}
		r, err := rs.FindByName(ctx, role.User)
		if errors.Is(err, role.ErrNotFound) {
			s.log.Warn().Str("role", role.User).Msg("default role missing, creating user without roles")
			return []role.Role{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []role.Role{*r}, nil
	})
}

// CreateUserWithRoleNames is CreateUser with roles given by name and no
// default for an empty set.
func (s *Service) CreateUserWithRoleNames(ctx context.Context, c Candidate, names []string) (*User, error) {
	return s.create(ctx, c, func(rs *role.Store) ([]role.Role, error) {
		return rs.FindByNames(ctx, names)
	})
}

func (s *Service) create(ctx context.Context, c Candidate, resolve func(*role.Store) ([]role.Role, error)) (*User, error) {
	const op = "create"
	hash, err := s.hasher.Hash(c.Password)
	if err != nil {
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultError).Inc()
		s.log.Error().Err(err).Str("op", op).Str("username", c.Username).Msg("password hash failed")
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := NewStore(tx)
		n, err := users.CountByUsername(ctx, c.Username)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateUsername
		}
		roles, err := resolve(role.NewStore(tx))
		if err != nil {
			return err
		}
		u := &User{
			Username:     c.Username,
			PasswordHash: hash,
			Name:         c.Name,
			Email:        c.Email,
			Age:          c.Age,
			Roles:        roles,
		}
		if err := users.Insert(ctx, u); err != nil {
			return err
		}
		created = u
		return nil
	})
	switch {
	case err == nil:
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
		s.log.Info().Uint("user_id", created.ID).Str("username", created.Username).
			Strs("roles", created.RoleNames()).Msg("user created")
		return created, nil
	case errors.Is(err, ErrDuplicateUsername):
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultDuplicate).Inc()
		return nil, ErrDuplicateUsername
	default:
		return nil, s.persistenceFailure(op, s.log.Error().Str("username", c.Username), err)
	}
}

// UpdateUser replaces the fields and the role set of user id. The stored hash
// is kept when the password is blank, is the stored hash itself, or verifies
// against it; anything else is hashed as a new secret.
func (s *Service) UpdateUser(ctx context.Context, id uint, c Candidate, roleIDs []uint) (*User, error) {
	const op = "update"
	var (
		updated *User
		hashErr error
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := NewStore(tx)
		existing, err := users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		other, err := users.FindByUsername(ctx, c.Username)
		switch {
		case err == nil && other.ID != id:
			return ErrDuplicateUsername
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}

		if s.needsRehash(c.Password, existing.PasswordHash) {
			hash, err := s.hasher.Hash(c.Password)
			if err != nil {
				hashErr = err
				return err
			}
			existing.PasswordHash = hash
			s.log.Debug().Uint("user_id", id).Msg("password changed")
		}

		roles, err := role.NewStore(tx).FindByIDs(ctx, roleIDs)
		if err != nil {
			return err
		}
		existing.Username = c.Username
		existing.Name = c.Name
		existing.Email = c.Email
		existing.Age = c.Age
		if err := users.Update(ctx, existing, roles); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	switch {
	case err == nil:
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
		s.log.Info().Uint("user_id", id).Str("username", updated.Username).
			Strs("roles", updated.RoleNames()).Msg("user updated")
		return updated, nil
	case hashErr != nil:
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultError).Inc()
		s.log.Error().Err(hashErr).Str("op", op).Uint("user_id", id).Msg("password hash failed")
		return nil, fmt.Errorf("hash password: %w", hashErr)
	case errors.Is(err, ErrNotFound):
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultNotFound).Inc()
		return nil, ErrNotFound
	case errors.Is(err, ErrDuplicateUsername):
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultDuplicate).Inc()
		return nil, ErrDuplicateUsername
	default:
		return nil, s.persistenceFailure(op, s.log.Error().Uint("user_id", id).Str("username", c.Username), err)
	}
}

func (s *Service) needsRehash(incoming, stored string) bool {
	if strings.TrimSpace(incoming) == "" || incoming == stored {
		return false
	}
	return !s.hasher.Verify(incoming, stored)
}

// DeleteUser removes user id. Deleting a missing id is a no-op.
func (s *Service) DeleteUser(ctx context.Context, id uint, actingUsername string) (DeleteOutcome, error) {
	const op = "delete"
	out := DeleteOutcome{UserID: id}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := NewStore(tx)
		u, err := users.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := users.DeleteByID(ctx, id)
		if err != nil {
			return err
		}
		out.Deleted = n > 0
		out.Username = u.Username
		out.TerminateSession = actingUsername != "" && u.Username == actingUsername
		return nil
	})
	if err != nil {
		return DeleteOutcome{UserID: id}, s.persistenceFailure(op, s.log.Error().Uint("user_id", id), err)
	}
	if out.Deleted {
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultOK).Inc()
		s.log.Info().Uint("user_id", id).Str("username", out.Username).
			Bool("self", out.TerminateSession).Msg("user deleted")
	} else {
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultNotFound).Inc()
		s.log.Debug().Uint("user_id", id).Msg("delete of missing user ignored")
	}
	return out, nil
}

func (s *Service) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := NewStore(s.db).CountByUsername(ctx, username)
	if err != nil {
		return false, s.persistenceFailure("exists", s.log.Error().Str("username", username), err)
	}
	return n > 0, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (*User, error) {
	u, err := NewStore(s.db).FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, s.persistenceFailure("find", s.log.Error().Str("username", username), err)
	}
	return u, err
}

func (s *Service) FindByID(ctx context.Context, id uint) (*User, error) {
	u, err := NewStore(s.db).FindByID(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, s.persistenceFailure("find", s.log.Error().Uint("user_id", id), err)
	}
	return u, err
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := NewStore(s.db).List(ctx)
	if err != nil {
		return nil, s.persistenceFailure("list", s.log.Error(), err)
	}
	return users, nil
}

// Authenticate returns the user whose password verifies, or
// ErrInvalidCredentials without saying which part was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.FindByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) persistenceFailure(op string, ev *zerolog.Event, err error) error {
	if op == "create" || op == "update" || op == "delete" {
		metrics.UserOperationsTotal.WithLabelValues(op, metrics.ResultError).Inc()
	}
	ev.Str("op", op).Err(err).Msg("persistence failure")
	return &PersistenceError{Op: op, Err: err}
}
