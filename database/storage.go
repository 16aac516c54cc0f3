package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ict-ledger/models"
)

// Config selects and tunes the relational store
type Config struct {
	Driver          string // sqlite or postgres
	Path            string // sqlite file, or :memory:
	DSN             string // postgres
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LocalStorage wraps the gorm handle shared by every store
type LocalStorage struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open connects to the configured database and migrates the schema
func Open(cfg Config, log *logrus.Logger) (*LocalStorage, error) {
	if log == nil {
		log = logrus.New()
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	gcfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "", "sqlite":
		dsn, derr := sqliteDSN(cfg.Path)
		if derr != nil {
			return nil, derr
		}
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if driver == "postgres" {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	} else {
		// SQLite has a single writer; one connection serialises account
		// transactions and avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"driver": driver,
		"path":   cfg.Path,
	}).Debug("Database opened")

	return &LocalStorage{db: db, logger: log}, nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" || path == ":memory:" {
		// A named shared-cache database keeps every pooled connection on the
		// same in-memory schema and isolates concurrent opens from each other.
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", NewID("mem_")), nil
	}
	if strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL", nil
}

// DB returns the underlying handle
func (s *LocalStorage) DB() *gorm.DB {
	return s.db
}

// InTx runs fn inside one transaction; any error rolls everything back
func (s *LocalStorage) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// WithTx returns a storage bound to an open transaction
func (s *LocalStorage) WithTx(tx *gorm.DB) *LocalStorage {
	return &LocalStorage{db: tx, logger: s.logger}
}

// Ping checks the connection
func (s *LocalStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *LocalStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound reports whether err is gorm's missing-row error
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
