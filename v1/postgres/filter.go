package postgres

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

var pathSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// predicate is a SQL boolean expression over the payload column with its
// positional arguments.
type predicate struct {
	sql  string
	args []any
}

// filterSQL translates fs into a predicate. Every condition evaluates to
// true or false, never NULL, so missing fields behave like in the other
// stores: they fail matches and ranges and satisfy MatchExcept and IsEmpty.
// An empty set yields an empty predicate.
func filterSQL(fs *vectordb.FilterSet) (predicate, error) {
	if fs == nil {
		return predicate{}, nil
	}
	var parts []predicate

	must, err := conditionsSQL(fs.Must)
	if err != nil {
		return predicate{}, err
	}
	parts = append(parts, must...)

	should, err := conditionsSQL(fs.Should)
	if err != nil {
		return predicate{}, err
	}
	if len(should) > 0 {
		parts = append(parts, join(should, " OR "))
	}

	mustNot, err := conditionsSQL(fs.MustNot)
	if err != nil {
		return predicate{}, err
	}
	if len(mustNot) > 0 {
		p := join(mustNot, " OR ")
		parts = append(parts, predicate{sql: "NOT " + p.sql, args: p.args})
	}

	if len(parts) == 0 {
		return predicate{}, nil
	}
	return join(parts, " AND "), nil
}

func join(parts []predicate, op string) predicate {
	sqls := make([]string, len(parts))
	var args []any
	for i, p := range parts {
		sqls[i] = p.sql
		args = append(args, p.args...)
	}
	return predicate{sql: "(" + strings.Join(sqls, op) + ")", args: args}
}

func conditionsSQL(cs *vectordb.ConditionSet) ([]predicate, error) {
	if cs == nil {
		return nil, nil
	}
	out := make([]predicate, 0, len(cs.Conditions))
	for _, c := range cs.Conditions {
		p, err := conditionSQL(c)
		if err != nil {
			return nil, err
		}
		if p.sql != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func conditionSQL(c vectordb.FilterCondition) (predicate, error) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		path, err := jsonPath(cond.Field, cond.FieldType)
		if err != nil {
			return predicate{}, err
		}
		return matchSQL(path, cond.Value)
	case *vectordb.MatchAnyCondition:
		return matchAnySQL(cond.Field, cond.FieldType, cond.Values, false)
	case *vectordb.MatchExceptCondition:
		return matchAnySQL(cond.Field, cond.FieldType, cond.Values, true)
	case *vectordb.NumericRangeCondition:
		path, err := jsonPath(cond.Field, cond.FieldType)
		if err != nil {
			return predicate{}, err
		}
		r := cond.Range
		return rangeSQL(path, "number", "::numeric", floatArg(r.Gt), floatArg(r.Gte), floatArg(r.Lt), floatArg(r.Lte))
	case *vectordb.TimeRangeCondition:
		path, err := jsonPath(cond.Field, cond.FieldType)
		if err != nil {
			return predicate{}, err
		}
		r := cond.Range
		return rangeSQL(path, "string", "::timestamptz", timeArg(r.Gt), timeArg(r.Gte), timeArg(r.Lt), timeArg(r.Lte))
	case *vectordb.IsNullCondition:
		path, err := jsonPath(cond.Field, cond.FieldType)
		if err != nil {
			return predicate{}, err
		}
		return predicate{
			sql:  "COALESCE(jsonb_typeof(payload #> ?::text[]) = 'null', false)",
			args: []any{path},
		}, nil
	case *vectordb.IsEmptyCondition:
		path, err := jsonPath(cond.Field, cond.FieldType)
		if err != nil {
			return predicate{}, err
		}
		return predicate{
			sql:  "COALESCE(payload #> ?::text[] IN ('null'::jsonb, '[]'::jsonb), true)",
			args: []any{path},
		}, nil
	default:
		return predicate{}, fmt.Errorf("%w: unknown condition %T", vectordb.ErrInvalidFilter, c)
	}
}

// jsonPath renders the payload location of a field as a text[] literal,
// e.g. "{custom,lang}".
func jsonPath(field string, fieldType vectordb.FieldType) (string, error) {
	segments := strings.Split(vectordb.FieldPath(field, fieldType), ".")
	for _, s := range segments {
		if !pathSegment.MatchString(s) {
			return "", fmt.Errorf("%w: invalid field name %q", vectordb.ErrInvalidFilter, field)
		}
	}
	return "{" + strings.Join(segments, ",") + "}", nil
}

// matchSQL matches a scalar field by value or a list field by element.
func matchSQL(path string, value any) (predicate, error) {
	switch value.(type) {
	case string, bool, int, int32, int64, float32, float64:
	default:
		return predicate{}, fmt.Errorf("%w: unsupported match value %T", vectordb.ErrInvalidFilter, value)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return predicate{}, fmt.Errorf("%w: %w", vectordb.ErrInvalidFilter, err)
	}
	return predicate{
		sql:  "COALESCE(payload #> ?::text[] = ?::jsonb OR payload #> ?::text[] @> jsonb_build_array(?::jsonb), false)",
		args: []any{path, string(v), path, string(v)},
	}, nil
}

func matchAnySQL(field string, fieldType vectordb.FieldType, values []any, except bool) (predicate, error) {
	if len(values) == 0 {
		return predicate{}, nil
	}
	path, err := jsonPath(field, fieldType)
	if err != nil {
		return predicate{}, err
	}
	parts := make([]predicate, 0, len(values))
	for _, v := range values {
		p, err := matchSQL(path, v)
		if err != nil {
			return predicate{}, err
		}
		parts = append(parts, p)
	}
	p := join(parts, " OR ")
	if except {
		p.sql = "NOT " + p.sql
	}
	return p, nil
}

// rangeSQL compares a field against bounds after checking its JSON type,
// so values of another type never reach the cast.
func rangeSQL(path, jsonType, cast string, gt, gte, lt, lte any) (predicate, error) {
	var (
		bounds []string
		args   = []any{path}
	)
	add := func(op string, v any) {
		if v == nil {
			return
		}
		bounds = append(bounds, fmt.Sprintf("(payload #>> ?::text[])%s %s ?%s", cast, op, cast))
		args = append(args, path, v)
	}
	add(">", gt)
	add(">=", gte)
	add("<", lt)
	add("<=", lte)
	if len(bounds) == 0 {
		return predicate{}, nil
	}
	return predicate{
		sql: fmt.Sprintf("(CASE WHEN jsonb_typeof(payload #> ?::text[]) = '%s' THEN %s ELSE false END)",
			jsonType, strings.Join(bounds, " AND ")),
		args: args,
	}, nil
}

func floatArg(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
