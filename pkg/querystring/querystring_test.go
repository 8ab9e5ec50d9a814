package querystring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQueryString(t *testing.T) {
	opts := ParseOptions{ParseNumbers: true, ParseBooleans: true}

	require.Equal(t, map[string]any{"page": int64(2), "active": true}, ParseQueryString("?page=2&active=true", opts))
	require.Equal(t, map[string]any{"page": "2", "active": "true"}, ParseQueryString("page=2&active=true", ParseOptions{}))
	require.Equal(t, map[string]any{"q": "óleo cbd", "ratio": 1.5}, ParseQueryString("q=%C3%B3leo+cbd&ratio=1.5", opts))
	require.Equal(t, map[string]any{"status": "DONE"}, ParseQueryString("status=TODO&status=DONE&=x&&", opts))
	require.Equal(t, map[string]any{"v": "NaN", "flag": "True"}, ParseQueryString("v=NaN&flag=True", opts))
	require.Empty(t, ParseQueryString("?", opts))
}

func TestStringifyQueryParams(t *testing.T) {
	require.Equal(t, "active=true&page=2", StringifyQueryParams(map[string]any{"page": 2, "active": true}))
	require.Equal(t, "page=2&active=true", StringifyOrdered([]string{"page", "active"}, map[string]any{"page": 2, "active": true}))
	require.Equal(t, "q=%C3%B3leo+cbd", StringifyQueryParams(map[string]any{"q": "óleo cbd", "empty": "", "nil": nil}))
	require.Equal(t, "", StringifyQueryParams(nil))
}

func TestRoundTrip(t *testing.T) {
	opts := ParseOptions{ParseNumbers: true, ParseBooleans: true}
	cases := []map[string]any{
		{"page": int64(3), "limit": int64(50), "arquivada": false, "q": "receita & laudo"},
		{"sortBy": "dataVencimento", "order": "asc", "min": -1.25},
		{},
	}
	for _, m := range cases {
		require.Equal(t, m, ParseQueryString(StringifyQueryParams(m), opts))
	}

	widened := ParseQueryString(StringifyQueryParams(map[string]any{"page": 2, "ratio": 2.0, "min": 0.5}), opts)
	require.Equal(t, map[string]any{"page": int64(2), "ratio": int64(2), "min": 0.5}, widened)

	strs := map[string]any{"page": "2", "active": "true"}
	require.Equal(t, strs, ParseQueryString(StringifyQueryParams(strs), ParseOptions{}))
}
