package db

import (
	"testing"

	"endurancy-platform/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.DBNAME = ":memory:"

	d, err := Dialect(cfg)
	require.NoError(t, err)
	require.Equal(t, "sqlite", d.Name())

	cfg.Database.Type = "oracle"
	_, err = Dialect(cfg)
	require.Error(t, err)
}

func TestExtractDBNameFromDSN(t *testing.T) {
	require.Equal(t, "endurancy", extractDBNameFromDSN("host=db port=5432 dbname=endurancy sslmode=disable"))
	require.Equal(t, "endurancy", extractDBNameFromDSN("user:pass@tcp(db:3306)/endurancy?parseTime=True"))
	require.Equal(t, "unknown", extractDBNameFromDSN("host=db"))
}
