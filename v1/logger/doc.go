// Package logger provides structured logging for the connectors.
//
// LoggerClient wraps zap with a small, error-first API: every method takes a
// message, an optional error and any number of field maps.
//
//	import "github.com/Aleph-Alpha/connectors/v1/logger"
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Info,
//		ServiceName:   "kernelctl",
//		EnableTracing: true,
//	})
//
//	log.Info("function invoked", nil, map[string]interface{}{
//		"function": "math-add",
//	})
//
//	// trace_id and span_id are added from the active span
//	log.ErrorWithContext(ctx, "tool call failed", err, nil)
//
// # Local Logger interfaces
//
// Packages such as kernel, ai and qdrant declare their own Logger interface
// with the five plain methods. *LoggerClient satisfies all of them, so the
// packages stay decoupled from zap.
//
// # Configuration
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning, error
//	LOGGER_SERVICE_NAME=kernelctl
//	LOGGER_ENABLE_TRACING=true
//	LOGGER_DEVELOPMENT=false        # console encoder when true
//
// # FX
//
//	app := fx.New(
//		logger.FXModule, // provides *LoggerClient and logger.Logger
//		fx.Supply(logger.Config{Level: logger.Debug}),
//	)
//
// All methods are safe for concurrent use.
package logger
