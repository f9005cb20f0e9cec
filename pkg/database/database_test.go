package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAndMigrate(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "travel.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate())
	// running again is a no-op
	require.NoError(t, db.Migrate())

	for _, table := range []string{"travel_requests", "workflow_instances", "audit_entries"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}
