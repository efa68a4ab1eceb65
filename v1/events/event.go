package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type classifies an Event.
type Type string

const (
	// FunctionInvoked is published after a model requested function ran.
	FunctionInvoked Type = "function.invoked"
	// FunctionFailed is published when the function or a later filter failed.
	FunctionFailed Type = "function.failed"
	// LoopTerminated is published when a filter ended the auto-invoke loop.
	LoopTerminated Type = "loop.terminated"
)

// Event is the audit record of one function call of the auto-invoke loop.
type Event struct {
	ID           string        `json:"id"`
	Time         time.Time     `json:"time"`
	Type         Type          `json:"type"`
	Plugin       string        `json:"plugin,omitempty"`
	Function     string        `json:"function"`
	CallID       string        `json:"call_id,omitempty"`
	RequestIndex int           `json:"request_index"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}

// New returns an event of type t with a fresh id and the current time.
func New(t Type) Event {
	return Event{ID: uuid.NewString(), Time: time.Now().UTC(), Type: t}
}

// Key is the partitioning key of the event: the call id when the model
// gave one, the event id otherwise.
func (e Event) Key() string {
	if e.CallID != "" {
		return e.CallID
	}
	return e.ID
}

// Sink receives published events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }
