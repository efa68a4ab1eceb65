package vectordb

import (
	"strings"
	"time"
)

// Matches evaluates the filter set against a payload the way Qdrant does:
// every Must condition holds, at least one Should condition holds when any
// are given, and no MustNot condition holds. A nil set matches everything.
func (fs *FilterSet) Matches(payload map[string]any) bool {
	if fs == nil {
		return true
	}
	if fs.Must != nil {
		for _, c := range fs.Must.Conditions {
			if !conditionMatches(c, payload) {
				return false
			}
		}
	}
	if fs.Should != nil && len(fs.Should.Conditions) > 0 {
		matched := false
		for _, c := range fs.Should.Conditions {
			if conditionMatches(c, payload) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if fs.MustNot != nil {
		for _, c := range fs.MustNot.Conditions {
			if conditionMatches(c, payload) {
				return false
			}
		}
	}
	return true
}

func conditionMatches(c FilterCondition, payload map[string]any) bool {
	switch cond := c.(type) {
	case *MatchCondition:
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		return ok && anyElement(v, func(e any) bool { return equalValues(e, cond.Value) })
	case *MatchAnyCondition:
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		return ok && anyElement(v, func(e any) bool { return containsValue(cond.Values, e) })
	case *MatchExceptCondition:
		// A missing field has no value in the excluded set.
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		return !ok || !anyElement(v, func(e any) bool { return containsValue(cond.Values, e) })
	case *NumericRangeCondition:
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		return ok && anyElement(v, func(e any) bool {
			n, ok := toFloat(e)
			return ok && inNumericRange(n, cond.Range)
		})
	case *TimeRangeCondition:
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		return ok && anyElement(v, func(e any) bool {
			t, ok := toTime(e)
			return ok && inTimeRange(t, cond.Range)
		})
	case *IsNullCondition:
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		return ok && v == nil
	case *IsEmptyCondition:
		v, ok := lookup(payload, FieldPath(cond.Field, cond.FieldType))
		if !ok || v == nil {
			return true
		}
		list, isList := v.([]any)
		return isList && len(list) == 0
	}
	return false
}

// lookup resolves a dotted path through nested maps. A literal key
// containing dots takes precedence.
func lookup(payload map[string]any, path string) (any, bool) {
	if v, ok := payload[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	nested, ok := payload[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return lookup(nested, rest)
}

// anyElement applies fn to v, or to each element when v is a list.
func anyElement(v any, fn func(any) bool) bool {
	switch list := v.(type) {
	case []any:
		for _, e := range list {
			if fn(e) {
				return true
			}
		}
		return false
	case []string:
		for _, e := range list {
			if fn(e) {
				return true
			}
		}
		return false
	}
	return fn(v)
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if equalValues(v, candidate) {
			return true
		}
	}
	return false
}

// equalValues compares payload values; numbers compare by value whatever
// their Go type.
func equalValues(a, b any) bool {
	if na, ok := toFloat(a); ok {
		nb, ok := toFloat(b)
		return ok && na == nb
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
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

func inNumericRange(n float64, r NumericRange) bool {
	return (r.Gt == nil || n > *r.Gt) &&
		(r.Gte == nil || n >= *r.Gte) &&
		(r.Lt == nil || n < *r.Lt) &&
		(r.Lte == nil || n <= *r.Lte)
}

func inTimeRange(t time.Time, r TimeRange) bool {
	return (r.Gt == nil || t.After(*r.Gt)) &&
		(r.Gte == nil || !t.Before(*r.Gte)) &&
		(r.Lt == nil || t.Before(*r.Lt)) &&
		(r.Lte == nil || !t.After(*r.Lte))
}
