package memory

import (
	"regexp"
	"strings"
	"time"

	"github.com/hongminglow/farmconnect/internal/storage"
)

func matchQuery(row storage.Row, q *storage.Query) bool {
	if !matchAll(row, q.Filters) {
		return false
	}
	for _, disj := range q.Any {
		if !matchAny(row, disj) {
			return false
		}
	}
	return true
}

func matchAny(row storage.Row, groups storage.AnyOf) bool {
	for _, group := range groups {
		if matchAll(row, group) {
			return true
		}
	}
	return false
}

func matchAll(row storage.Row, filters []storage.Filter) bool {
	for _, f := range filters {
		if !match(row[f.Column], f) {
			return false
		}
	}
	return true
}

func match(value any, f storage.Filter) bool {
	switch f.Op {
	case storage.OpEq:
		if f.Value == nil {
			return value == nil
		}
		c, ok := compare(value, f.Value)
		return ok && c == 0
	case storage.OpNeq:
		if f.Value == nil {
			return value != nil
		}
		c, ok := compare(value, f.Value)
		return ok && c != 0
	case storage.OpGt, storage.OpGte, storage.OpLt, storage.OpLte:
		c, ok := compare(value, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case storage.OpGt:
			return c > 0
		case storage.OpGte:
			return c >= 0
		case storage.OpLt:
			return c < 0
		default:
			return c <= 0
		}
	case storage.OpILike:
		s, ok := value.(string)
		pattern, _ := f.Value.(string)
		return ok && likeRegexp(pattern).MatchString(s)
	case storage.OpIn:
		s, ok := value.(string)
		if !ok {
			return false
		}
		values, _ := f.Value.([]string)
		for _, v := range values {
			if v == s {
				return true
			}
		}
		return false
	}
	return false
}

// compare orders two values of the same kind. ok is false when the values
// cannot be compared, which makes every filter on them fail like SQL NULL.
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	case time.Time:
		bv, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
