package httpapi

import (
	"endurancy-platform/pkg/db/pagination"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/querystring"

	"github.com/gin-gonic/gin"
)

// BindJSON decodes the request body. Field validation happens in the
// service layer.
func BindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errutil.BadRequest("invalid request body", err)
	}
	return nil
}

func BindPagination(c *gin.Context) (pagination.Pagination, error) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		return p, errutil.BadRequest("invalid pagination", err)
	}
	return p.Normalize(), nil
}

// Query returns the request query string as typed values.
func Query(c *gin.Context) map[string]any {
	return querystring.ParseQueryString(c.Request.URL.RawQuery, querystring.ParseOptions{
		ParseNumbers:  true,
		ParseBooleans: true,
	})
}

type ListResponse[T any] struct {
	Data     []*T                 `json:"data"`
	PageInfo *pagination.PageInfo `json:"pageInfo"`
	Next     string               `json:"next,omitempty"`
}

// NewListResponse keeps the caller's filters and swaps in the next cursor.
func NewListResponse[T any](c *gin.Context, data []*T, info *pagination.PageInfo) ListResponse[T] {
	if data == nil {
		data = []*T{}
	}
	res := ListResponse[T]{Data: data, PageInfo: info}
	if info != nil && info.HasMore {
		params := querystring.ParseQueryString(c.Request.URL.RawQuery, querystring.ParseOptions{})
		params["cursor"] = info.NextCursor
		res.Next = c.Request.URL.Path + "?" + querystring.StringifyQueryParams(params)
	}
	return res
}
