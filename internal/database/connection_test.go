package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dpx/pkg/models"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Connect(Config{Driver: DriverSQLite, URL: MemoryDSN}))
	t.Cleanup(func() { Close() })
}

func createParticipant(t *testing.T, telegramID int64) *models.Participant {
	t.Helper()
	p := &models.Participant{TelegramID: telegramID, ChatID: telegramID, FirstName: "Ada"}
	require.NoError(t, NewParticipantRepository().Create(context.Background(), p))
	return p
}

func TestConnectCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	require.NoError(t, Connect(Config{DataDir: dir}))
	defer Close()

	assert.Equal(t, DriverSQLite, DB.DriverName())
	assert.FileExists(t, filepath.Join(dir, "dpx.db"))

	// schema creation is idempotent
	assert.NoError(t, initializeSchema())
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	assert.Error(t, Connect(Config{Driver: "mysql"}))
	assert.Error(t, Connect(Config{Driver: DriverPostgres}))
}

func TestConfigDSN(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "dpx.db"), Config{}.DSN())
	assert.Equal(t, filepath.Join("/var/dpx", "dpx.db"), Config{DataDir: "/var/dpx"}.DSN())
	assert.Equal(t, MemoryDSN, Config{URL: MemoryDSN, DataDir: "ignored"}.DSN())
}
