package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photokey/floorplan/internal/config"
)

type note struct {
	ID   uint `gorm:"primaryKey"`
	Body string
}

func sqliteManager(t *testing.T, path string) *Manager {
	t.Helper()
	m := NewManager(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: path},
	}, zerolog.Nop())
	require.NoError(t, m.Connect())
	t.Cleanup(func() { m.Close() })
	return m
}

func TestConnect_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.db")
	m := sqliteManager(t, path)

	assert.True(t, m.IsValid)
	assert.True(t, m.UseSQLite)
	require.NoError(t, m.Setup(&note{}))
	require.NoError(t, m.DB.Create(&note{Body: "hello"}).Error)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestConnect_SQLiteMemory(t *testing.T) {
	m := sqliteManager(t, MemoryPath)

	require.NoError(t, m.Setup(&note{}))
	require.NoError(t, m.DB.Create(&note{Body: "a"}).Error)

	var count int64
	require.NoError(t, m.DB.Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConnect_PostgresFallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(config.StorageConfig{
		Type:   "postgres",
		SQLite: config.SQLiteConfig{Path: path},
		Postgres: config.PostgresConfig{
			Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x",
		},
	}, zerolog.Nop())
	assert.False(t, m.UseSQLite)

	require.NoError(t, m.Connect())
	t.Cleanup(func() { m.Close() })

	assert.True(t, m.UseSQLite)
	assert.True(t, m.IsValid)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
}

func TestSetup_NotConnected(t *testing.T) {
	m := NewManager(config.StorageConfig{Type: "sqlite"}, zerolog.Nop())
	assert.Error(t, m.Setup(&note{}))
}

func TestBackup(t *testing.T) {
	dir := t.TempDir()
	m := sqliteManager(t, MemoryPath)
	require.NoError(t, m.Setup(&note{}))
	require.NoError(t, m.DB.Create(&note{Body: "kept"}).Error)

	backup := filepath.Join(dir, "backup.db")
	require.NoError(t, os.WriteFile(backup, []byte("stale"), 0644))
	require.NoError(t, m.Backup(backup))

	restored := sqliteManager(t, backup)
	var n note
	require.NoError(t, restored.DB.First(&n).Error)
	assert.Equal(t, "kept", n.Body)

	assert.Error(t, m.Backup(""))
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host: "db", Port: "5432", Username: "u", Password: "p", Database: "plans",
	})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=plans sslmode=disable", dsn)

	dsn = PostgresDSN(config.PostgresConfig{Host: "db", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
