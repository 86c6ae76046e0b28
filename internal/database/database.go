package database

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/model"
)

// Manager handles database connections and operations.
type Manager struct {
	DB             *gorm.DB
	SqlDB          *sql.DB
	IsValid        bool
	SavingLocal    bool
	SqliteFilePath string
	Logger         zerolog.Logger
}

// NewManager creates a new database manager. sqlitePath is the local
// database used for the sqlite storage type and as the Postgres fallback.
func NewManager(log zerolog.Logger, sqlitePath string) *Manager {
	return &Manager{
		SqliteFilePath: sqlitePath,
		Logger:         log,
	}
}

// Connect opens the database for the given storage type. A postgres
// connection that cannot be opened or pinged falls back to the local SQLite
// file.
func (m *Manager) Connect(storageType string, dbCfg config.DBConfig) error {
	var err error

	switch storageType {
	case "postgres":
		m.DB, err = m.GetPostgresDB(dbCfg)
		if err == nil {
			m.SqlDB, err = m.DB.DB()
		}
		if err == nil {
			err = m.SqlDB.Ping()
		}
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			return m.connectLocal()
		}
		m.SqlDB.SetMaxOpenConns(10)
		m.Logger.Info().Str("host", dbCfg.Host).Msg("Connected to database")
	case "sqlite":
		return m.connectLocal()
	default:
		return fmt.Errorf("unsupported database type: %s", storageType)
	}

	m.IsValid = true
	return nil
}

func (m *Manager) connectLocal() error {
	var err error
	m.SavingLocal = true
	m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
	if err != nil || m.DB == nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	// a single writer avoids SQLITE_BUSY from the flush goroutine
	m.SqlDB.SetMaxOpenConns(1)
	m.IsValid = true
	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB(c config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database,
	)

	m.Logger.Debug().Str("host", c.Host).Str("port", c.Port).Str("database", c.Database).
		Msg("Connecting to Postgres DB")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if path == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		m.Logger.Info().Msg("Using local SQLite DB in memory")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Setup migrates the telemetry tables.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return fmt.Errorf("database not connected")
	}

	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}
