package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testWriter routes gorm warnings into the test log so they only surface
// for failing or verbose runs.
type testWriter struct{ t testing.TB }

func (w testWriter) Printf(format string, args ...any) {
	w.t.Helper()
	w.t.Logf(format, args...)
}

// NewTestDB opens a shared-cache in-memory SQLite database private to the
// test and migrates models into it.
// The pool holds a single connection, so code under test must not mix the
// root handle with an open transaction.
func NewTestDB(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.New(testWriter{t}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) == 0 {
		return db
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("migrate %s: %v", name, err)
	}
	return db
}
