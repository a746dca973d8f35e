package bootstrap

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go-useradmin/internal/db"
	"go-useradmin/internal/logger"
	"go-useradmin/internal/role"
	"go-useradmin/internal/user"
)

type env struct {
	db     *gorm.DB
	roles  *role.Service
	users  *user.Service
	hasher user.Hasher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	conn, err := db.OpenMemory(t.Name(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	h := user.NewBcryptHasher(bcrypt.MinCost)
	return &env{
		db:     conn,
		roles:  role.NewService(conn, logger.Nop()),
		users:  user.NewService(conn, h, logger.Nop()),
		hasher: h,
	}
}

func TestRunOnce_EmptyStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, NewSequencer(e.roles, e.users, logger.Nop()).RunOnce(ctx))

	roles, err := e.roles.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	users, err := e.users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	admin, err := e.users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{role.Admin, role.User}, admin.RoleNames())
	assert.Equal(t, "Administrator", admin.Name)
	assert.True(t, e.hasher.Verify("admin", admin.PasswordHash))
	assert.NotEqual(t, "admin", admin.PasswordHash)

	regular, err := e.users.FindByUsername(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, []string{role.User}, regular.RoleNames())
	assert.Equal(t, "DefaultUser", regular.Name)
	assert.True(t, e.hasher.Verify("user", regular.PasswordHash))
}

func TestRunOnce_OnlyOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seq := NewSequencer(e.roles, e.users, logger.Nop())
	require.NoError(t, seq.RunOnce(ctx))

	admin, err := e.users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	_, err = e.users.DeleteUser(ctx, admin.ID, "")
	require.NoError(t, err)

	require.NoError(t, seq.RunOnce(ctx))
	exists, err := e.users.ExistsByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, exists, "second RunOnce on the same sequencer must not reseed")
}

func TestRunOnce_IdempotentAcrossRestarts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, NewSequencer(e.roles, e.users, logger.Nop()).RunOnce(ctx))
	}

	roles, err := e.roles.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 2)
	users, err := e.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestRunOnce_KeepsExistingAccounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.roles.EnsureDefaultRoles(ctx))
	custom, err := e.users.CreateUser(ctx, user.Candidate{Username: "admin", Password: "changed"}, nil)
	require.NoError(t, err)

	require.NoError(t, NewSequencer(e.roles, e.users, logger.Nop()).RunOnce(ctx))

	admin, err := e.users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, custom.ID, admin.ID)
	assert.True(t, e.hasher.Verify("changed", admin.PasswordHash))
	assert.Equal(t, []string{role.User}, admin.RoleNames())
}

func TestRunOnce_SeedFailureDoesNotStopNextSeed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	var logs bytes.Buffer
	seq := NewSequencer(e.roles, e.users, logger.New(logger.Options{Output: &logs}))
	seq.seeds = []Seed{
		// bcrypt rejects secrets longer than 72 bytes, so this one fails.
		{Candidate: user.Candidate{Username: "broken", Password: string(bytes.Repeat([]byte("x"), 100))}, Roles: []string{role.User}},
		DefaultSeeds[1],
	}

	require.NoError(t, seq.RunOnce(ctx))

	exists, err := e.users.ExistsByUsername(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = e.users.ExistsByUsername(ctx, "user")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Contains(t, logs.String(), "failed to create seed account")
}

func TestRunOnce_RoleFailureIsReturned(t *testing.T) {
	e := newEnv(t)
	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = NewSequencer(e.roles, e.users, logger.Nop()).RunOnce(context.Background())
	assert.Error(t, err)
}
