package querystring

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type ParseOptions struct {
	ParseNumbers  bool
	ParseBooleans bool
}

// ParseQueryString decodes a flat query string. A leading "?" is ignored,
// repeated keys keep the last value and empty keys are skipped. With
// ParseNumbers every integral number becomes int64 and any other number
// float64, so a map built with int or 2.0 does not come back equal after a
// round trip through StringifyQueryParams.
func ParseQueryString(raw string, opts ParseOptions) map[string]any {
	out := map[string]any{}
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return out
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			val = v
		}
		out[key] = coerce(val, opts)
	}
	return out
}

func coerce(v string, opts ParseOptions) any {
	if opts.ParseBooleans {
		switch v {
		case "true":
			return true
		case "false":
			return false
		}
	}
	if opts.ParseNumbers && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && isDecimal(v) {
			return f
		}
	}
	return v
}

// isDecimal rejects inputs strconv accepts but a form field would not mean
// as a number, such as "Inf", "NaN" or hex floats.
func isDecimal(v string) bool {
	for i, r := range v {
		switch {
		case r >= '0' && r <= '9', r == '.':
		case (r == '-' || r == '+') && i == 0:
		case r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}

// StringifyQueryParams encodes params with keys in sorted order, not in the
// order a caller wrote the literal: {page: 2, active: true} gives
// "active=true&page=2". Use StringifyOrdered when the order matters. Nil
// values and empty strings are left out.
func StringifyQueryParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return StringifyOrdered(keys, params)
}

// StringifyOrdered encodes params following keys. Keys missing from params
// are skipped.
func StringifyOrdered(keys []string, params map[string]any) string {
	var b strings.Builder
	for _, k := range keys {
		v, ok := params[k]
		if !ok || v == nil || k == "" {
			continue
		}
		s := format(v)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return b.String()
}

func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
