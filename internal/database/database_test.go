package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"ai-artist-backend/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT * FROM creations WHERE id = ? AND kind = ?"
	assert.Equal(t, q, database.SQLite.Rebind(q))
	assert.Equal(t, "SELECT * FROM creations WHERE id = $1 AND kind = $2", database.Postgres.Rebind(q))
}

func TestParseDialect(t *testing.T) {
	d, err := database.ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, database.SQLite, d)

	d, err = database.ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, database.Postgres, d)

	_, err = database.ParseDialect("oracle")
	assert.Error(t, err)
}

func TestMigrator_RunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(ctx, database.SQLite, filepath.Join(t.TempDir(), "artist.db"))
	require.NoError(t, err)
	defer db.Close()

	m := database.NewMigrator(db, nil)
	require.NoError(t, m.Run(ctx))
	require.NoError(t, m.Run(ctx))

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_creations.sql"}, applied)

	_, err = db.ExecContext(ctx, "INSERT INTO creations (kind, mime_type, payload, created_at) VALUES ('image', 'image/png', 'x', 1)")
	assert.NoError(t, err)
}
