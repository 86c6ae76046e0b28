package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/internal/model"
)

func TestConnect_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	m := NewManager(zerolog.Nop(), path)

	require.NoError(t, m.Connect("sqlite", config.DBConfig{}))
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.SavingLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.Session{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.PoseSample{}))
	assert.True(t, m.DB.Migrator().HasTable(&model.Transition{}))
	assert.FileExists(t, path)
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(zerolog.Nop(), path)

	err := m.Connect("postgres", config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "fpcam",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	assert.True(t, m.SavingLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestConnect_UnknownType(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Connect("mysql", config.DBConfig{}))
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}
