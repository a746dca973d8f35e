package db

import (
	"fmt"
	stdlog "log"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"go-useradmin/internal/config"
	"go-useradmin/internal/role"
	"go-useradmin/internal/user"
)

// Init opens the configured database and migrates the schema.
func Init(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverPostgres, "":
		dialector = postgres.Open(cfg.Database.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig(log))
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite {
		// sqlite serialises writers anyway; one connection avoids SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected and migrated")
	return db, nil
}

// Migrate creates or updates the roles, users and user_roles tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&role.Role{}, &user.User{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated private in-memory sqlite database. Each name
// gets its own database, so tests pass t.Name().
func OpenMemory(name string, log zerolog.Logger) (*gorm.DB, error) {
	safe := strings.NewReplacer("/", "_", " ", "_", "?", "_", "#", "_").Replace(name)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", safe)
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// The memory database lives as long as its last connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func gormConfig(log zerolog.Logger) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			stdlog.New(log.With().Str("component", "gorm").Logger(), "", 0),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}
