package vectordb

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UserPayloadPrefix is the payload key user-defined fields are stored under.
const UserPayloadPrefix = "custom"

// FieldType tells whether a condition addresses a top-level payload key or
// one of the caller's own fields under UserPayloadPrefix.
type FieldType int

const (
	InternalField FieldType = iota
	UserField
)

func (t FieldType) MarshalJSON() ([]byte, error) {
	if t == UserField {
		return []byte(`"user"`), nil
	}
	return []byte(`"internal"`), nil
}

func (t *FieldType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "user":
		*t = UserField
	case "internal", "":
		*t = InternalField
	default:
		return fmt.Errorf("%w: unknown field type %q", ErrInvalidFilter, s)
	}
	return nil
}

// FieldPath returns the dotted payload path a condition is evaluated on,
// e.g. "source" for an internal field and "custom.author" for a user field.
func FieldPath(field string, fieldType FieldType) string {
	if fieldType == UserField && !strings.HasPrefix(field, UserPayloadPrefix+".") {
		return UserPayloadPrefix + "." + field
	}
	return field
}

// FilterCondition is one of the condition types below. Every store
// translates them into its own query language; MemoryStore evaluates them
// directly with FilterSet.Matches.
type FilterCondition interface {
	IsFilterCondition()
}

// FilterSet combines conditions the way Qdrant does. A hit must satisfy
// every Must condition, at least one Should condition when there are any,
// and no MustNot condition.
//
//	filters := vectordb.NewFilterSet(
//	    vectordb.Must(vectordb.NewMatch("source", "handbook.md")),
//	    vectordb.MustNot(vectordb.NewUserMatch("draft", true)),
//	)
type FilterSet struct {
	Must    *ConditionSet `json:"must,omitempty"`
	Should  *ConditionSet `json:"should,omitempty"`
	MustNot *ConditionSet `json:"mustNot,omitempty"`
}

// ConditionSet is the condition list of one clause.
type ConditionSet struct {
	Conditions []FilterCondition `json:"conditions,omitempty"`
}

// MatchCondition holds when the field equals Value. A list-valued field
// matches when any element does.
type MatchCondition struct {
	Field     string    `json:"field"`
	Value     any       `json:"equalTo"`
	FieldType FieldType `json:"fieldType,omitempty"`
}

func (*MatchCondition) IsFilterCondition() {}

// MatchAnyCondition holds when the field equals one of Values.
type MatchAnyCondition struct {
	Field     string    `json:"field"`
	Values    []any     `json:"anyOf"`
	FieldType FieldType `json:"fieldType,omitempty"`
}

func (*MatchAnyCondition) IsFilterCondition() {}

// MatchExceptCondition holds when the field equals none of Values. A
// missing field holds as well.
type MatchExceptCondition struct {
	Field     string    `json:"field"`
	Values    []any     `json:"noneOf"`
	FieldType FieldType `json:"fieldType,omitempty"`
}

func (*MatchExceptCondition) IsFilterCondition() {}

// NumericRange bounds a number. Nil bounds are open.
type NumericRange struct {
	Gt  *float64 `json:"greaterThan,omitempty"`
	Gte *float64 `json:"greaterThanOrEqualTo,omitempty"`
	Lt  *float64 `json:"lessThan,omitempty"`
	Lte *float64 `json:"lessThanOrEqualTo,omitempty"`
}

// TimeRange bounds a timestamp. Nil bounds are open.
type TimeRange struct {
	Gt  *time.Time `json:"after,omitempty"`
	Gte *time.Time `json:"atOrAfter,omitempty"`
	Lt  *time.Time `json:"before,omitempty"`
	Lte *time.Time `json:"atOrBefore,omitempty"`
}

// NumericRangeCondition holds when the field is a number inside Range.
type NumericRangeCondition struct {
	Field     string
	Range     NumericRange
	FieldType FieldType
}

func (*NumericRangeCondition) IsFilterCondition() {}

// The wire form of range conditions is flat: the bounds sit next to field
// and fieldType.
type numericRangeJSON struct {
	Field     string    `json:"field"`
	FieldType FieldType `json:"fieldType,omitempty"`
	NumericRange
}

func (c *NumericRangeCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(numericRangeJSON{Field: c.Field, FieldType: c.FieldType, NumericRange: c.Range})
}

func (c *NumericRangeCondition) UnmarshalJSON(data []byte) error {
	var w numericRangeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = NumericRangeCondition{Field: w.Field, Range: w.NumericRange, FieldType: w.FieldType}
	return nil
}

// TimeRangeCondition holds when the field is an RFC 3339 timestamp inside
// Range.
type TimeRangeCondition struct {
	Field     string
	Range     TimeRange
	FieldType FieldType
}

func (*TimeRangeCondition) IsFilterCondition() {}

type timeRangeJSON struct {
	Field     string    `json:"field"`
	FieldType FieldType `json:"fieldType,omitempty"`
	TimeRange
}

func (c *TimeRangeCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeJSON{Field: c.Field, FieldType: c.FieldType, TimeRange: c.Range})
}

func (c *TimeRangeCondition) UnmarshalJSON(data []byte) error {
	var w timeRangeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = TimeRangeCondition{Field: w.Field, Range: w.TimeRange, FieldType: w.FieldType}
	return nil
}

// IsNullCondition holds when the field is present with a null value.
type IsNullCondition struct {
	Field     string    `json:"field"`
	FieldType FieldType `json:"fieldType,omitempty"`
}

func (*IsNullCondition) IsFilterCondition() {}

func (c *IsNullCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(flaggedField{Field: c.Field, FieldType: c.FieldType, IsNull: true})
}

// IsEmptyCondition holds when the field is missing, null or an empty list.
type IsEmptyCondition struct {
	Field     string    `json:"field"`
	FieldType FieldType `json:"fieldType,omitempty"`
}

func (*IsEmptyCondition) IsFilterCondition() {}

func (c *IsEmptyCondition) MarshalJSON() ([]byte, error) {
	return json.Marshal(flaggedField{Field: c.Field, FieldType: c.FieldType, IsEmpty: true})
}

// flaggedField is the wire form of the null and empty checks; the flag
// identifies the condition when decoding.
type flaggedField struct {
	Field     string    `json:"field"`
	FieldType FieldType `json:"fieldType,omitempty"`
	IsNull    bool      `json:"isNull,omitempty"`
	IsEmpty   bool      `json:"isEmpty,omitempty"`
}
