package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/goldhabermd/clinic-api/migrations"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".up.sql"):
			ups[strings.TrimSuffix(f, ".up.sql")] = true
		case strings.HasSuffix(f, ".down.sql"):
			downs[strings.TrimSuffix(f, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file name: %s", f)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrationsContent(t *testing.T) {
	up, err := fs.ReadFile(migrations.FS, "000001_create_appointments.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS appointments")
	assert.Contains(t, string(up), "id          UUID         PRIMARY KEY")

	down, err := fs.ReadFile(migrations.FS, "000001_create_appointments.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS appointments")
}

func TestEmbeddedMigrationsReadableBySource(t *testing.T) {
	source, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer source.Close()

	first, err := source.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}
