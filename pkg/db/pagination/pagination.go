package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 250
)

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" validate:"omitempty,gte=1,lte=250"`
}

// Normalize clamps Limit into [1, MaxLimit], defaulting to DefaultLimit.
func (p Pagination) Normalize() Pagination {
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

type Cursor struct {
	CreatedAt string `json:"created_at,omitempty"`
	ID        string `json:"id,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// CursorOf builds the opaque cursor for a row.
func CursorOf(id string, createdAt time.Time) string {
	c, _ := EncodeCursor(Cursor{ID: id, CreatedAt: createdAt.UTC().Format(time.RFC3339Nano)})
	return c
}

// OffsetCursor is used by listings sorted on something other than
// created_at, where keyset continuation does not apply.
func OffsetCursor(offset int) string {
	c, _ := EncodeCursor(Cursor{Offset: offset})
	return c
}

// Page trims a Limit+1 result set and reports whether more rows exist.
func Page[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, *PageInfo) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(data) == 0 {
		return data, &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	info := &PageInfo{HasMore: hasMore}
	if hasMore {
		info.NextCursor = extractCursor(data[len(data)-1])
	}
	return data, info
}

// Offset returns the row offset carried by an offset cursor, or 0.
func (p Pagination) Offset() int {
	if p.Cursor == "" {
		return 0
	}
	c, err := DecodeCursor(p.Cursor)
	if err != nil || c.Offset < 0 {
		return 0
	}
	return c.Offset
}
