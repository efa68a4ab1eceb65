package qdrant

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// OriginalIDField holds the caller's id for points whose id is neither a
// UUID nor an unsigned integer.
const OriginalIDField = "_original_id"

// idNamespace seeds the name-based UUIDs derived from free-form ids.
var idNamespace = uuid.MustParse("6f1c2a52-5d6e-4b8f-9a53-0f3c7e3c1d2a")

// ── Point IDs ────────────────────────────────────────────────────────────────

// toPointID maps a vectordb id onto a Qdrant point id. hashed reports
// whether the id had to be derived, in which case the original must be
// stored in the payload.
func toPointID(id string) (pid *qdrant.PointId, hashed bool, err error) {
	if id == "" {
		return nil, false, fmt.Errorf("%w: empty id", ErrInvalidPointID)
	}
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n), false, nil
	}
	if u, err := uuid.Parse(id); err == nil && u.String() == id {
		return qdrant.NewIDUUID(id), false, nil
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(idNamespace, []byte(id)).String()), true, nil
}

func toPointIDs(ids []string) ([]*qdrant.PointId, error) {
	out := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pid, _, err := toPointID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, pid)
	}
	return out, nil
}

// fromPointID extracts a string ID from Qdrant's PointId type.
func fromPointID(id *qdrant.PointId) (string, error) {
	if id == nil {
		return "", fmt.Errorf("%w: nil point id", ErrInvalidPointID)
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10), nil
	case *qdrant.PointId_Uuid:
		return v.Uuid, nil
	default:
		return "", fmt.Errorf("%w: unexpected type %T", ErrInvalidPointID, v)
	}
}

// recordID returns the caller's id, preferring OriginalIDField, and removes
// that field from payload.
func recordID(id *qdrant.PointId, payload map[string]any) (string, error) {
	if orig, ok := payload[OriginalIDField].(string); ok && orig != "" {
		delete(payload, OriginalIDField)
		return orig, nil
	}
	return fromPointID(id)
}

// ── Points ───────────────────────────────────────────────────────────────────

func toPoint(r vectordb.Record) (*qdrant.PointStruct, error) {
	pid, hashed, err := toPointID(r.ID)
	if err != nil {
		return nil, err
	}
	payload := make(map[string]any, len(r.Payload)+1)
	for k, v := range r.Payload {
		payload[k] = normalizeValue(v)
	}
	if hashed {
		payload[OriginalIDField] = r.ID
	}
	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: record %s: %w", vectordb.ErrInvalidRecord, r.ID, err)
	}
	return &qdrant.PointStruct{
		Id:      pid,
		Vectors: qdrant.NewVectorsDense(r.Vector),
		Payload: values,
	}, nil
}

// normalizeValue turns typed slices and maps into the []any and
// map[string]any shapes the Qdrant value encoder accepts.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []int64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeValue(e)
		}
		return out
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

// denseVector returns the dense vector of a point, nil when vectors were
// not requested.
func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if out == nil {
		return nil
	}
	if d := out.GetDense(); d != nil {
		return d.GetData()
	}
	// servers before 1.13 only fill the deprecated field
	return out.GetData() //nolint:staticcheck
}

func fromScoredPoints(collection string, points []*qdrant.ScoredPoint) ([]vectordb.SearchResult, error) {
	results := make([]vectordb.SearchResult, 0, len(points))
	for _, p := range points {
		payload := fromPayload(p.Payload)
		id, err := recordID(p.Id, payload)
		if err != nil {
			return nil, err
		}
		results = append(results, vectordb.SearchResult{
			ID:             id,
			Score:          p.Score,
			Payload:        payload,
			Vector:         denseVector(p.Vectors),
			CollectionName: collection,
		})
	}
	return results, nil
}

func fromRetrievedPoints(points []*qdrant.RetrievedPoint) ([]vectordb.Record, error) {
	records := make([]vectordb.Record, 0, len(points))
	for _, p := range points {
		payload := fromPayload(p.Payload)
		id, err := recordID(p.Id, payload)
		if err != nil {
			return nil, err
		}
		records = append(records, vectordb.Record{
			ID:      id,
			Vector:  denseVector(p.Vectors),
			Payload: payload,
		})
	}
	return records, nil
}

// fromPayload converts Qdrant's protobuf payload to a generic map.
func fromPayload(payload map[string]*qdrant.Value) map[string]any {
	if payload == nil {
		return nil
	}
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		result[k] = fromValue(v)
	}
	return result
}

// fromValue recursively converts a Qdrant Value to a Go native type.
func fromValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_StructValue:
		if val.StructValue == nil {
			return nil
		}
		return fromPayload(val.StructValue.Fields)
	case *qdrant.Value_ListValue:
		if val.ListValue == nil {
			return nil
		}
		items := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			items[i] = fromValue(item)
		}
		return items
	default:
		return nil
	}
}

// ── Filter Conversion ────────────────────────────────────────────────────────

// toFilter converts a vectordb.FilterSet to a Qdrant filter. An empty set
// yields nil.
func toFilter(fs *vectordb.FilterSet) (*qdrant.Filter, error) {
	if fs == nil {
		return nil, nil
	}
	var (
		filter qdrant.Filter
		err    error
	)
	if filter.Must, err = toConditions(fs.Must); err != nil {
		return nil, err
	}
	if filter.Should, err = toConditions(fs.Should); err != nil {
		return nil, err
	}
	if filter.MustNot, err = toConditions(fs.MustNot); err != nil {
		return nil, err
	}
	if len(filter.Must) == 0 && len(filter.Should) == 0 && len(filter.MustNot) == 0 {
		return nil, nil
	}
	return &filter, nil
}

func toConditions(cs *vectordb.ConditionSet) ([]*qdrant.Condition, error) {
	if cs == nil {
		return nil, nil
	}
	conditions := make([]*qdrant.Condition, 0, len(cs.Conditions))
	for _, c := range cs.Conditions {
		cond, err := toCondition(c)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			conditions = append(conditions, cond)
		}
	}
	return conditions, nil
}

func toCondition(c vectordb.FilterCondition) (*qdrant.Condition, error) {
	switch cond := c.(type) {
	case *vectordb.MatchCondition:
		return matchCondition(vectordb.FieldPath(cond.Field, cond.FieldType), cond.Value)
	case *vectordb.MatchAnyCondition:
		return matchAnyCondition(vectordb.FieldPath(cond.Field, cond.FieldType), cond.Values, false)
	case *vectordb.MatchExceptCondition:
		return matchAnyCondition(vectordb.FieldPath(cond.Field, cond.FieldType), cond.Values, true)
	case *vectordb.NumericRangeCondition:
		r := cond.Range
		if r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil {
			return nil, nil
		}
		return qdrant.NewRange(vectordb.FieldPath(cond.Field, cond.FieldType), &qdrant.Range{
			Gt: r.Gt, Gte: r.Gte, Lt: r.Lt, Lte: r.Lte,
		}), nil
	case *vectordb.TimeRangeCondition:
		r := cond.Range
		if r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil {
			return nil, nil
		}
		return qdrant.NewDatetimeRange(vectordb.FieldPath(cond.Field, cond.FieldType), &qdrant.DatetimeRange{
			Gt:  toTimestamp(r.Gt),
			Gte: toTimestamp(r.Gte),
			Lt:  toTimestamp(r.Lt),
			Lte: toTimestamp(r.Lte),
		}), nil
	case *vectordb.IsNullCondition:
		return qdrant.NewIsNull(vectordb.FieldPath(cond.Field, cond.FieldType)), nil
	case *vectordb.IsEmptyCondition:
		return qdrant.NewIsEmpty(vectordb.FieldPath(cond.Field, cond.FieldType)), nil
	default:
		return nil, fmt.Errorf("%w: unknown condition %T", vectordb.ErrInvalidFilter, c)
	}
}

func matchCondition(key string, value any) (*qdrant.Condition, error) {
	switch v := value.(type) {
	case string:
		return qdrant.NewMatch(key, v), nil
	case bool:
		return qdrant.NewMatchBool(key, v), nil
	case int:
		return qdrant.NewMatchInt(key, int64(v)), nil
	case int32:
		return qdrant.NewMatchInt(key, int64(v)), nil
	case int64:
		return qdrant.NewMatchInt(key, v), nil
	case float64:
		// JSON numbers decode as float64; integral ones match exactly,
		// the rest become a closed range.
		if v == math.Trunc(v) {
			return qdrant.NewMatchInt(key, int64(v)), nil
		}
		return qdrant.NewRange(key, &qdrant.Range{Gte: &v, Lte: &v}), nil
	default:
		return nil, fmt.Errorf("%w: %s: %T", ErrUnsupportedValue, key, value)
	}
}

func matchAnyCondition(key string, values []any, except bool) (*qdrant.Condition, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if _, ok := values[0].(string); ok {
		strs := make([]string, len(values))
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s: mixed value types", vectordb.ErrInvalidFilter, key)
			}
			strs[i] = s
		}
		if except {
			return qdrant.NewMatchExceptKeywords(key, strs...), nil
		}
		return qdrant.NewMatchKeywords(key, strs...), nil
	}

	ints := make([]int64, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case int:
			ints[i] = int64(n)
		case int32:
			ints[i] = int64(n)
		case int64:
			ints[i] = n
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("%w: %s: fractional value %v", ErrUnsupportedValue, key, n)
			}
			ints[i] = int64(n)
		default:
			return nil, fmt.Errorf("%w: %s: %T", ErrUnsupportedValue, key, v)
		}
	}
	if except {
		return qdrant.NewMatchExceptInts(key, ints...), nil
	}
	return qdrant.NewMatchInts(key, ints...), nil
}

func toTimestamp(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}
