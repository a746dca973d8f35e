package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"go-useradmin/internal/api"
	"go-useradmin/internal/auth"
	"go-useradmin/internal/bootstrap"
	"go-useradmin/internal/config"
	"go-useradmin/internal/db"
	"go-useradmin/internal/logger"
	redisdb "go-useradmin/internal/redis"
	"go-useradmin/internal/role"
	"go-useradmin/internal/user"
)

func main() {
	// A local .env may carry USERADMIN_* overrides; it is optional.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	ctx := context.Background()

	conn, err := db.Init(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}

	sessions, err := sessionStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("session store init failed")
	}

	roles := role.NewService(conn, log)
	users := user.NewService(conn, user.NewBcryptHasher(bcrypt.DefaultCost), log)
	if err := bootstrap.NewSequencer(roles, users, log).RunOnce(ctx); err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	gin.SetMode(gin.ReleaseMode)
	r := api.SetupRouter(&api.Deps{
		Config:   cfg,
		Users:    users,
		Roles:    roles,
		Sessions: sessions,
		Log:      log,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().Str("addr", addr).Str("subpath", cfg.Server.Subpath).Msg("starting server")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// sessionStore uses Redis when an address is configured and falls back to
// process memory otherwise.
func sessionStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (auth.SessionStore, error) {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("redis not configured, sessions are kept in memory")
		return auth.NewMemorySessionStore(), nil
	}
	rdb := redisdb.NewClient(cfg)
	if err := redisdb.Ping(ctx, rdb); err != nil {
		return nil, err
	}
	return auth.NewRedisSessionStore(rdb), nil
}
