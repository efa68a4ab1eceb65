package kernel

import (
	"encoding/json"
	"fmt"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// FunctionResult is the value a function produced.
type FunctionResult struct {
	Function *FunctionMetadata
	Value    any
	Metadata map[string]any
}

// ResultErrorKey holds the error of a failed function call in
// FunctionResult.Metadata. Value then carries the message for the model.
const ResultErrorKey = "error"

// Failure returns the error recorded under ResultErrorKey, if any.
func (r *FunctionResult) Failure() error {
	if r == nil {
		return nil
	}
	err, _ := r.Metadata[ResultErrorKey].(error)
	return err
}

// String renders Value for humans and models.
func (r *FunctionResult) String() string {
	if r == nil {
		return ""
	}
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *contents.ChatMessageContent:
		return v.Content()
	case []*contents.ChatMessageContent:
		if len(v) == 0 {
			return ""
		}
		return v[0].Content()
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Sprint(r.Value)
	}
	return string(b)
}

// ValueAs returns the value of r as T.
func ValueAs[T any](r *FunctionResult) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.Value.(T)
	return v, ok
}
