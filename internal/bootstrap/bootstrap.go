// Package bootstrap seeds the canonical roles and accounts at process start.
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"go-useradmin/internal/metrics"
	"go-useradmin/internal/role"
	"go-useradmin/internal/user"
)

// Seed describes one default account.
type Seed struct {
	Candidate user.Candidate
	Roles     []string
}

// DefaultSeeds are created when missing. The passwords are well known and
// meant to be changed by the operator after first login.
var DefaultSeeds = []Seed{
	{
		Candidate: user.Candidate{Username: "admin", Password: "admin", Name: "Administrator", Email: "admin@mail.ru", Age: 30},
		Roles:     []string{role.Admin, role.User},
	},
	{
		Candidate: user.Candidate{Username: "user", Password: "user", Name: "DefaultUser", Email: "user@mail.ru", Age: 40},
		Roles:     []string{role.User},
	},
}

type Sequencer struct {
	roles *role.Service
	users *user.Service
	seeds []Seed
	log   zerolog.Logger

	once sync.Once
	err  error
}

func NewSequencer(roles *role.Service, users *user.Service, log zerolog.Logger) *Sequencer {
	return &Sequencer{
		roles: roles,
		users: users,
		seeds: DefaultSeeds,
		log:   log.With().Str("component", "bootstrap").Logger(),
	}
}

// RunOnce reconciles roles and seeds accounts. Only the first call does any
// work; later calls return the first result. A role failure is returned and
// should stop startup. Seed failures are logged and skipped.
func (s *Sequencer) RunOnce(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.run(ctx)
	})
	return s.err
}

func (s *Sequencer) run(ctx context.Context) error {
	if err := s.roles.EnsureDefaultRoles(ctx); err != nil {
		return fmt.Errorf("ensure default roles: %w", err)
	}
	for _, seed := range s.seeds {
		s.seed(ctx, seed)
	}
	s.log.Info().Msg("bootstrap complete")
	return nil
}

func (s *Sequencer) seed(ctx context.Context, seed Seed) {
	name := seed.Candidate.Username
	log := s.log.With().Str("username", name).Logger()

	exists, err := s.users.ExistsByUsername(ctx, name)
	if err != nil {
		metrics.BootstrapSeedsTotal.WithLabelValues(name, metrics.ResultError).Inc()
		log.Error().Err(err).Msg("failed to check seed account")
		return
	}
	if exists {
		metrics.BootstrapSeedsTotal.WithLabelValues(name, metrics.ResultSkipped).Inc()
		log.Debug().Msg("seed account already exists")
		return
	}

	log.Info().Strs("roles", seed.Roles).Msg("creating seed account")
	if _, err := s.users.CreateUserWithRoleNames(ctx, seed.Candidate, seed.Roles); err != nil {
		metrics.BootstrapSeedsTotal.WithLabelValues(name, metrics.ResultError).Inc()
		log.Error().Err(err).Msg("failed to create seed account")
		return
	}
	metrics.BootstrapSeedsTotal.WithLabelValues(name, metrics.ResultOK).Inc()
}
