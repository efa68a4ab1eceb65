package events

import (
	"context"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

//go:generate mockgen -source=filter.go -destination=mock_logger.go -package=events

// Logger is the logging surface of the audit filter.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// NewAuditFilter returns an auto-function-invocation filter that publishes
// one event per function call once the rest of the chain has run. Publish
// failures are logged and never change the outcome of the call.
//
// Register it first so it sees Terminate and results set by later filters:
//
//	k, err := kernel.New(
//	    kernel.WithAutoFunctionInvocationFilter(events.NewAuditFilter(sink, log)),
//	)
func NewAuditFilter(sink Sink, logger Logger) kernel.AutoFunctionInvocationFilter {
	return func(ctx context.Context, ac *kernel.AutoFunctionInvocationContext, next func(context.Context, *kernel.AutoFunctionInvocationContext) error) error {
		start := time.Now()
		err := next(ctx, ac)

		event := New(FunctionInvoked)
		event.Duration = time.Since(start)
		event.RequestIndex = ac.RequestSequenceIndex
		if ac.FunctionCall != nil {
			event.CallID = ac.FunctionCall.ID
			event.Plugin = ac.FunctionCall.PluginName
			event.Function = ac.FunctionCall.FunctionName
		} else if ac.Function != nil {
			meta := ac.Function.Metadata()
			event.Plugin, event.Function = meta.PluginName, meta.Name
		}

		failure := err
		if failure == nil {
			failure = ac.Result.Failure()
		}
		switch {
		case failure != nil:
			event.Type = FunctionFailed
			event.Error = failure.Error()
		case ac.Terminate:
			event.Type = LoopTerminated
		}

		// Publish even when the call's context is already cancelled.
		if perr := sink.Publish(context.WithoutCancel(ctx), event); perr != nil && logger != nil {
			logger.Warn("failed to publish invocation event", perr, map[string]interface{}{
				"event_id": event.ID,
				"type":     string(event.Type),
				"function": event.Function,
			})
		}
		return err
	}
}
