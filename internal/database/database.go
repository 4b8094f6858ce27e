// Package database opens the scene database: PostgreSQL in production,
// SQLite for local editing, tests and as the fallback when PostgreSQL is
// unreachable. SQLite databases can be snapshotted to disk with VACUUM INTO.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/model"
)

// MemoryDSN is the shared-cache in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

var (
	ErrNoDumpPath = errors.New("database: no dump path")
	ErrNotSQLite  = errors.New("database: only sqlite databases can be dumped")
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA busy_timeout = 5000;",
}

// Manager holds the connection of one editing session.
type Manager struct {
	DB *gorm.DB
	// Fallback is set when PostgreSQL was unreachable and DB is the
	// in-memory SQLite database instead.
	Fallback bool
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log.With().Str("component", "database").Logger()}
}

// Connect opens PostgreSQL and pings it. When that fails and allowFallback
// is set, the in-memory SQLite database is used instead.
func (m *Manager) Connect(cfg config.DBConfig, allowFallback bool) error {
	db, err := GetPostgresDB(cfg)
	if err == nil {
		err = ping(db)
	}
	if err == nil {
		m.DB = db
		m.log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to PostgreSQL")
		return nil
	}
	if !allowFallback {
		return fmt.Errorf("failed to connect to postgres at %s: %w", cfg.Host, err)
	}

	m.log.Warn().Err(err).Str("host", cfg.Host).Msg("PostgreSQL unreachable, editing against in-memory SQLite")
	db, serr := GetSqliteDB("")
	if serr != nil {
		return fmt.Errorf("postgres: %w; sqlite fallback: %w", err, serr)
	}
	m.DB = db
	m.Fallback = true
	return nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(10)
	return nil
}

// Setup migrates the scene tables.
func (m *Manager) Setup() error {
	if err := Migrate(m.DB); err != nil {
		return err
	}
	m.log.Debug().Str("dialect", m.DB.Name()).Msg("Scene tables ready")
	return nil
}

// Dump snapshots a SQLite connection to path.
func (m *Manager) Dump(path string) error {
	if m.DB == nil || m.DB.Name() != "sqlite" {
		return ErrNotSQLite
	}
	if err := DumpMemoryDBToDisk(m.DB, path); err != nil {
		return err
	}
	m.log.Info().Str("path", path).Msg("Dumped scene database")
	return nil
}

// PostgresDSN builds the connection string for cfg.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

func gormConfig(batch int) *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        batch,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// GetPostgresDB opens cfg without pinging it.
func GetPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), gormConfig(1000))
}

// GetSqliteDB opens the SQLite file at path, or the shared in-memory
// database when path is empty.
func GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}
	cfg := gormConfig(500)
	cfg.PrepareStmt = true
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting %q: %w", pragma, err)
		}
	}
	return db, nil
}

// Migrate creates or updates the scene tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryDBToDisk writes a consistent copy of db to path. The copy is
// made next to path and renamed over it, so readers never see a partial
// file.
func DumpMemoryDBToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoDumpPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}

	tmp := path + ".tmp"
	// VACUUM INTO refuses to overwrite
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing stale dump: %w", err)
	}
	target := strings.ReplaceAll(tmp, "'", "''")
	if err := db.Exec("VACUUM INTO 'file:" + target + "';").Error; err != nil {
		return fmt.Errorf("error dumping database: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing dump: %w", err)
	}
	return nil
}
