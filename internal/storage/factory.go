package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/database"
	gormstorage "github.com/bkfirstperson/extension/internal/storage/gorm"
	influxstorage "github.com/bkfirstperson/extension/internal/storage/influx"
	"github.com/bkfirstperson/extension/internal/storage/memory"
	"github.com/bkfirstperson/extension/internal/storage/websocket"
)

// Dependencies holds what the backends need besides their own settings.
type Dependencies struct {
	Storage config.StorageConfig
	DB      config.DBConfig
	Influx  config.InfluxConfig
	Stream  config.WebsocketConfig
	BaseDir string // relative paths are resolved against it
	Logger  *slog.Logger
	ZLogger zerolog.Logger
}

// NewBackend creates a storage backend based on configuration. It returns
// nil, nil for type "none".
func NewBackend(deps Dependencies) (Backend, error) {
	cfg := deps.Storage
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		mc := cfg.Memory
		mc.OutputDir = resolve(deps.BaseDir, mc.OutputDir)
		return memory.New(mc), nil
	case "sqlite", "postgres":
		mgr := database.NewManager(deps.ZLogger, resolve(deps.BaseDir, cfg.SQLite.Path))
		if err := mgr.Connect(cfg.Type, deps.DB); err != nil {
			return nil, fmt.Errorf("connecting %s: %w", cfg.Type, err)
		}
		return gormstorage.New(gormstorage.Dependencies{
			Manager:    mgr,
			Logger:     deps.Logger,
			QueueLimit: cfg.QueueSize,
		}), nil
	case "influx":
		return influxstorage.New(influxstorage.Dependencies{
			Config:     deps.Influx,
			BackupPath: resolve(deps.BaseDir, "fpcam_influx_backup.lp.gz"),
			Logger:     deps.ZLogger,
		}), nil
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    deps.Stream.URL,
			Secret: deps.Stream.Secret,
			Logger: deps.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
