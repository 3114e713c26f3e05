package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/penstream/broadcast/internal/config"
	"github.com/penstream/broadcast/internal/domain"
	"github.com/penstream/broadcast/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the durable tier backed by a relational database: unbounded entry
// count, same TTL as the fast tier, survives process restart. Expired rows
// are deleted lazily when a lookup touches them.
type DB struct {
	db  *gorm.DB
	ttl time.Duration
}

// OpenDB initializes the durable tier database based on configuration and
// runs migrations.
func OpenDB(cfg *config.DatabaseConfig, ttl time.Duration) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = openPostgres(cfg, gormConfig)
	case "sqlite":
		db, err = openSQLite(cfg, gormConfig)
	default:
		logger.Warn("Unknown database driver %q, defaulting to SQLite", cfg.Driver)
		db, err = openSQLite(cfg, gormConfig)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&domain.CacheEntry{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &DB{db: db, ttl: ttl}, nil
}

func openPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// PreferSimpleProtocol keeps the driver compatible with transaction
	// poolers, which reject implicit prepared statements.
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

func openSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// WAL lets concurrent readers proceed while a write is in flight
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	return db, nil
}

func (d *DB) Get(ctx context.Context, url string) (*domain.CacheEntry, bool) {
	var entry domain.CacheEntry
	err := d.db.WithContext(ctx).
		Where("url_hash = ?", domain.HashURL(url)).
		First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.CtxWarn(ctx, "Durable cache lookup failed: %v", err)
		}
		return nil, false
	}
	if entry.Expired(d.ttl) {
		d.db.WithContext(ctx).Delete(&domain.CacheEntry{}, "url_hash = ?", entry.URLHash)
		return nil, false
	}
	return &entry, true
}

func (d *DB) Set(ctx context.Context, entry *domain.CacheEntry) error {
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}
	return nil
}
