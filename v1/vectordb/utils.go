package vectordb

import (
	"encoding/json"
	"fmt"
)

// NewFilterSet builds a FilterSet from Must, Should and MustNot clauses.
//
//	vectordb.NewFilterSet(
//	    vectordb.Must(vectordb.NewMatch("source", "handbook.md")),
//	    vectordb.Should(vectordb.NewUserMatch("lang", "en"), vectordb.NewUserMatch("lang", "de")),
//	)
func NewFilterSet(clauses ...func(*FilterSet)) *FilterSet {
	fs := &FilterSet{}
	for _, clause := range clauses {
		clause(fs)
	}
	return fs
}

// Must sets the conditions that all have to hold.
func Must(conditions ...FilterCondition) func(*FilterSet) {
	return func(fs *FilterSet) { fs.Must = &ConditionSet{Conditions: conditions} }
}

// Should sets the conditions of which at least one has to hold.
func Should(conditions ...FilterCondition) func(*FilterSet) {
	return func(fs *FilterSet) { fs.Should = &ConditionSet{Conditions: conditions} }
}

// MustNot sets the conditions none of which may hold.
func MustNot(conditions ...FilterCondition) func(*FilterSet) {
	return func(fs *FilterSet) { fs.MustNot = &ConditionSet{Conditions: conditions} }
}

// Constructors come in pairs: NewX addresses a top-level payload key and
// NewUserX a field under UserPayloadPrefix. The value-list constructors
// panic when the values mix strings, numbers and booleans.

func NewMatch(field string, value any) *MatchCondition {
	return &MatchCondition{Field: field, Value: value}
}

func NewUserMatch(field string, value any) *MatchCondition {
	return &MatchCondition{Field: field, Value: value, FieldType: UserField}
}

func NewMatchAny(field string, values ...any) *MatchAnyCondition {
	return &MatchAnyCondition{Field: field, Values: mustBeHomogeneous(values)}
}

func NewUserMatchAny(field string, values ...any) *MatchAnyCondition {
	return &MatchAnyCondition{Field: field, Values: mustBeHomogeneous(values), FieldType: UserField}
}

func NewMatchExcept(field string, values ...any) *MatchExceptCondition {
	return &MatchExceptCondition{Field: field, Values: mustBeHomogeneous(values)}
}

func NewUserMatchExcept(field string, values ...any) *MatchExceptCondition {
	return &MatchExceptCondition{Field: field, Values: mustBeHomogeneous(values), FieldType: UserField}
}

func NewNumericRange(field string, r NumericRange) *NumericRangeCondition {
	return &NumericRangeCondition{Field: field, Range: r}
}

func NewUserNumericRange(field string, r NumericRange) *NumericRangeCondition {
	return &NumericRangeCondition{Field: field, Range: r, FieldType: UserField}
}

func NewTimeRange(field string, r TimeRange) *TimeRangeCondition {
	return &TimeRangeCondition{Field: field, Range: r}
}

func NewUserTimeRange(field string, r TimeRange) *TimeRangeCondition {
	return &TimeRangeCondition{Field: field, Range: r, FieldType: UserField}
}

func NewIsNull(field string) *IsNullCondition {
	return &IsNullCondition{Field: field}
}

func NewUserIsNull(field string) *IsNullCondition {
	return &IsNullCondition{Field: field, FieldType: UserField}
}

func NewIsEmpty(field string) *IsEmptyCondition {
	return &IsEmptyCondition{Field: field}
}

func NewUserIsEmpty(field string) *IsEmptyCondition {
	return &IsEmptyCondition{Field: field, FieldType: UserField}
}

// MarshalJSON writes the conditions as a plain list.
func (cs *ConditionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.Conditions)
}

// UnmarshalJSON reads a condition list. The concrete type of each
// condition is recognised by its keys, see conditionKinds.
func (cs *ConditionSet) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cs.Conditions = make([]FilterCondition, 0, len(raw))
	for _, r := range raw {
		cond, err := decodeCondition(r)
		if err != nil {
			return err
		}
		cs.Conditions = append(cs.Conditions, cond)
	}
	return nil
}

// conditionKinds maps identifying keys to the condition they decode into.
// Order matters only for malformed input carrying keys of several kinds.
var conditionKinds = []struct {
	keys   []string
	decode func() FilterCondition
	values func(FilterCondition) []any
}{
	{
		keys:   []string{"equalTo"},
		decode: func() FilterCondition { return &MatchCondition{} },
	},
	{
		keys:   []string{"anyOf"},
		decode: func() FilterCondition { return &MatchAnyCondition{} },
		values: func(c FilterCondition) []any { return c.(*MatchAnyCondition).Values },
	},
	{
		keys:   []string{"noneOf"},
		decode: func() FilterCondition { return &MatchExceptCondition{} },
		values: func(c FilterCondition) []any { return c.(*MatchExceptCondition).Values },
	},
	{
		keys:   []string{"greaterThan", "greaterThanOrEqualTo", "lessThan", "lessThanOrEqualTo"},
		decode: func() FilterCondition { return &NumericRangeCondition{} },
	},
	{
		keys:   []string{"after", "atOrAfter", "before", "atOrBefore"},
		decode: func() FilterCondition { return &TimeRangeCondition{} },
	},
	{
		keys:   []string{"isNull"},
		decode: func() FilterCondition { return &IsNullCondition{} },
	},
	{
		keys:   []string{"isEmpty"},
		decode: func() FilterCondition { return &IsEmptyCondition{} },
	},
}

func decodeCondition(data json.RawMessage) (FilterCondition, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, err
	}
	for _, kind := range conditionKinds {
		if !hasAnyKey(keys, kind.keys) {
			continue
		}
		cond := kind.decode()
		if err := json.Unmarshal(data, cond); err != nil {
			return nil, err
		}
		if kind.values != nil {
			if err := checkHomogeneous(kind.values(cond)); err != nil {
				return nil, err
			}
		}
		return cond, nil
	}
	return nil, fmt.Errorf("%w: unknown condition %s", ErrInvalidFilter, string(data))
}

func hasAnyKey(m map[string]json.RawMessage, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func mustBeHomogeneous(values []any) []any {
	if err := checkHomogeneous(values); err != nil {
		panic(err)
	}
	return values
}

// checkHomogeneous rejects value lists mixing strings, numbers and
// booleans, which no store can compare against one field.
func checkHomogeneous(values []any) error {
	var first string
	for i, v := range values {
		kind := valueKind(v)
		if kind == "" {
			return fmt.Errorf("%w: unsupported value type %T at index %d", ErrInvalidFilter, v, i)
		}
		if i == 0 {
			first = kind
			continue
		}
		if kind != first {
			return fmt.Errorf("%w: mixed value types: %s at index 0, %s at index %d", ErrInvalidFilter, first, kind, i)
		}
	}
	return nil
}

func valueKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int, int32, int64, float32, float64:
		return "numeric"
	case bool:
		return "boolean"
	}
	return ""
}
