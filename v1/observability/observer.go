// Package observability defines the hook connectors use to report the
// operations they perform (model requests, function calls, vector store
// access) to metrics, tracing or audit backends.
//
// Packages accept an optional Observer and call it after every operation.
// A nil Observer is always valid and means "not observed".
package observability

import "time"

// Observer receives one OperationContext per completed operation.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes a single completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "openai", "qdrant", "kernel".
	Component string

	// Operation is the action, e.g. "chat_completion", "search", "invoke_function".
	Operation string

	// Resource is the primary target: model id, collection, function name.
	Resource string

	// SubResource narrows Resource: plugin name, session id, object key.
	SubResource string

	Duration time.Duration
	Error    error

	// Size is operation specific: tokens, bytes or number of records.
	Size int64

	Metadata map[string]interface{}
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) { f(ctx) }

// Multi fans one operation out to several observers. Nil entries are skipped.
func Multi(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(ctx OperationContext) {
		for _, o := range list {
			o.ObserveOperation(ctx)
		}
	})
}
