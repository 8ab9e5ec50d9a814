package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type row struct{ id string }

func TestPage(t *testing.T) {
	rows := []*row{{"3"}, {"2"}, {"1"}}

	page, info := Page(rows, 2, func(r *row) string { return r.id })
	require.Len(t, page, 2)
	require.True(t, info.HasMore)
	require.Equal(t, "2", info.NextCursor)

	page, info = Page(rows, 5, func(r *row) string { return r.id })
	require.Len(t, page, 3)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextCursor)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c, err := DecodeCursor(CursorOf("42", at))
	require.NoError(t, err)
	require.Equal(t, "42", c.ID)
	require.Equal(t, "2025-03-01T10:00:00Z", c.CreatedAt)
}

func TestNormalize(t *testing.T) {
	require.Equal(t, DefaultLimit, Pagination{}.Normalize().Limit)
	require.Equal(t, MaxLimit, Pagination{Limit: 1000}.Normalize().Limit)
	require.Equal(t, 7, Pagination{Limit: 7}.Normalize().Limit)
}

func TestOffsetCursor(t *testing.T) {
	require.Equal(t, 40, Pagination{Cursor: OffsetCursor(40)}.Offset())
	require.Zero(t, Pagination{}.Offset())
	require.Zero(t, Pagination{Cursor: "%%%"}.Offset())
}
