package option

import (
	"fmt"
	"strings"
	"time"

	"endurancy-platform/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption is a gorm scope applied by repository finders.
type QueryOption func(*gorm.DB) *gorm.DB

type Operator string

const (
	EQ   Operator = "="
	NEQ  Operator = "<>"
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	IN   Operator = "IN"
	LIKE Operator = "LIKE"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single column condition. Field is a column name chosen
// by the caller, never raw user input.
func ApplyOperator(c Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		col := clause.Column{Name: c.Field}
		switch c.Operator {
		case NEQ:
			return db.Where(clause.Neq{Column: col, Value: c.Value})
		case GT:
			return db.Where(clause.Gt{Column: col, Value: c.Value})
		case GTE:
			return db.Where(clause.Gte{Column: col, Value: c.Value})
		case LT:
			return db.Where(clause.Lt{Column: col, Value: c.Value})
		case LTE:
			return db.Where(clause.Lte{Column: col, Value: c.Value})
		case IN:
			values, _ := c.Value.([]any)
			if values == nil {
				if ss, ok := c.Value.([]string); ok {
					for _, s := range ss {
						values = append(values, s)
					}
				}
			}
			return db.Where(clause.IN{Column: col, Values: values})
		case LIKE:
			return db.Where(clause.Like{Column: col, Value: c.Value})
		default:
			return db.Where(clause.Eq{Column: col, Value: c.Value})
		}
	}
}

// Equal matches zero values too, which struct conditions skip.
func Equal(field string, value any) QueryOption {
	return ApplyOperator(Condition{Field: field, Operator: EQ, Value: value})
}

// Contains does a case-insensitive substring match on field.
func Contains(field, term string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if term == "" {
			return db
		}
		return db.Where(fmt.Sprintf("LOWER(%s) LIKE ?", field), "%"+strings.ToLower(term)+"%")
	}
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		sortBy := s.SortBy
		if sortBy == "" || (s.Allow != nil && !s.Allow[sortBy]) {
			sortBy = "created_at"
		}

		desc := !strings.EqualFold(s.OrderBy, "asc")
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: sortBy}, Desc: desc}).
			Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
	}
}

// ApplyPagination limits the query to Limit+1 rows so callers can detect a
// further page. A cursor continues a created_at DESC, id DESC listing.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		limit := p.Normalize().Limit
		db = db.Limit(limit + 1)

		if p.Cursor == "" {
			return db
		}

		cursor, err := pagination.DecodeCursor(p.Cursor)
		if err != nil || cursor.ID == "" {
			return db
		}

		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return db.Where("id < ?", cursor.ID)
		}
		createdAt = createdAt.Local()
		return db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}
}

// ApplyOffsetPagination is ApplyPagination for custom sort orders. The
// cursor carries the row offset of the next page.
func ApplyOffsetPagination(p pagination.Pagination) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Limit(p.Normalize().Limit + 1)
		if p.Cursor == "" {
			return db
		}
		cursor, err := pagination.DecodeCursor(p.Cursor)
		if err != nil || cursor.Offset <= 0 {
			return db
		}
		return db.Offset(cursor.Offset)
	}
}

func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

func Preload(query string, args ...any) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(query, args...)
	}
}
