// Package store persists transactions, learned category mappings and
// recurring payments with gorm over sqlite or postgres.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cleared-dev/txray/internal/config"
	"github.com/cleared-dev/txray/internal/model"
)

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("record not found")

// Store is the gorm-backed repository for every txray table.
type Store struct {
	db     *gorm.DB
	dedupe bool
	log    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDedupe fingerprints inserted transactions and silently skips rows
// that were already imported.
func WithDedupe(on bool) Option {
	return func(s *Store) { s.dedupe = on }
}

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open connects to the configured database, waits for it to accept
// connections when it is remote, and migrates the schema.
func Open(cfg config.DatabaseConfig, log zerolog.Logger, opts ...Option) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.Driver == "postgres" {
		if err := WaitForDatabase(sqlDB, cfg.ReadyRetries, log); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("database readiness check failed: %w", err)
		}
	}

	s := New(db, append([]Option{WithLogger(log)}, opts...)...)
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open gorm connection. The schema is not migrated.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates every table and index.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&model.Transaction{},
		&model.CategoryMapping{},
		&model.RecurringTransaction{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
