package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/db/pagination"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID        string `gorm:"primaryKey"`
	OrgID     string
	Name      string
	Archived  bool
	CreatedAt time.Time
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](newDB(t))

	require.NoError(t, repo.Create(ctx, &widget{ID: "1", OrgID: "o1", Name: "Alpha"}))

	got, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "Alpha", got.Name)

	missing, err := repo.FindOne(ctx, &widget{Name: "nope"})
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.Update(ctx, "1", map[string]any{"archived": true}))
	archived, err := repo.Find(ctx, &widget{OrgID: "o1"}, option.Equal("archived", true))
	require.NoError(t, err)
	require.Len(t, archived, 1)

	require.NoError(t, repo.Delete(ctx, "1"))
	n, err := repo.Count(ctx, &widget{OrgID: "o1"})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStorePagination(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](newDB(t))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []*widget
	for i := 1; i <= 5; i++ {
		rows = append(rows, &widget{ID: fmt.Sprintf("%d", i), OrgID: "o1", Name: fmt.Sprintf("w%d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	require.NoError(t, repo.BatchCreate(ctx, rows))

	cursorOf := func(w *widget) string { return pagination.CursorOf(w.ID, w.CreatedAt) }
	p := pagination.Pagination{Limit: 2}

	first, err := repo.Find(ctx, &widget{OrgID: "o1"}, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))
	require.NoError(t, err)
	page, info := pagination.Page(first, p.Limit, cursorOf)
	require.Equal(t, []string{"5", "4"}, []string{page[0].ID, page[1].ID})
	require.True(t, info.HasMore)

	p.Cursor = info.NextCursor
	second, err := repo.Find(ctx, &widget{OrgID: "o1"}, option.WithSortBy(option.QuerySortBy{}), option.ApplyPagination(p))
	require.NoError(t, err)
	page, _ = pagination.Page(second, p.Limit, cursorOf)
	require.Equal(t, []string{"3", "2"}, []string{page[0].ID, page[1].ID})
}

func TestContainsAndSortAllowlist(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](newDB(t))
	require.NoError(t, repo.Create(ctx, &widget{ID: "1", Name: "Banana", CreatedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &widget{ID: "2", Name: "apple", CreatedAt: time.Now().Add(time.Second)}))

	found, err := repo.Find(ctx, nil, option.Contains("name", "APP"))
	require.NoError(t, err)
	require.Len(t, found, 1)

	sorted, err := repo.Find(ctx, nil, option.WithSortBy(option.QuerySortBy{
		SortBy: "name; drop table widgets", OrderBy: "asc", Allow: map[string]bool{"name": true},
	}))
	require.NoError(t, err)
	require.Equal(t, "1", sorted[0].ID)
}
