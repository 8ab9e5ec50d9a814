package db

import (
	"context"
	"testing"
	"testing/fstest"

	"endurancy-platform/migrations"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigratorLoadOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":  {Data: []byte("CREATE TABLE b (id TEXT);")},
		"001_a.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
		"003_c.sql":  {Data: []byte("  \n")},
		"README.txt": {Data: []byte("ignored")},
	}

	got, err := NewMigrator(nil, fsys).Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "001_a.sql", got[0].Name)
	require.Equal(t, "002_b.sql", got[1].Name)
}

func TestEmbeddedMigrationsAreNumbered(t *testing.T) {
	got, err := NewMigrator(nil, migrations.FS).Load()
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "001_core.sql", got[0].Name)
	for _, m := range got {
		require.Regexp(t, `^\d{3}_[a-z_]+\.sql$`, m.Name)
		require.Contains(t, m.SQL, "CREATE TABLE IF NOT EXISTS")
	}
}

func TestMigratorUpIsIdempotent(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT PRIMARY KEY);")},
		"002_b.sql": {Data: []byte("CREATE TABLE b (id TEXT PRIMARY KEY); CREATE INDEX idx_b ON b (id);")},
	}
	m := NewMigrator(sqlDB, fsys)
	ctx := context.Background()

	n, err := m.Up(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = m.Up(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	fsys["003_bad.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE a (id TEXT);")}
	_, err = m.Up(ctx)
	require.ErrorContains(t, err, "003_bad.sql")

	st, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st, 3)
	require.True(t, st[0].Applied)
	require.True(t, st[1].Applied)
	require.False(t, st[2].Applied)
	require.NotNil(t, st[0].AppliedAt)
}
