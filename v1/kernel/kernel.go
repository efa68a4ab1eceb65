package kernel

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

const instrumentationName = "github.com/Aleph-Alpha/connectors/v1/kernel"

// Logger is the logging contract of this package.
//
//go:generate mockgen -source=kernel.go -destination=mock_logger.go -package=kernel
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}
func (nopLogger) Fatal(string, error, ...map[string]interface{}) {}

// Kernel holds plugins, AI services and filters. It is safe for concurrent
// use; registration and lookups may happen while functions run.
type Kernel struct {
	mu           sync.RWMutex
	plugins      map[string]*Plugin
	pluginOrder  []string
	services     map[string]Service
	serviceOrder []string

	functionFilters []FunctionInvocationFilter
	autoFilters     []AutoFunctionInvocationFilter

	logger   Logger
	observer observability.Observer
	tracer   trace.Tracer
}

// Option configures a Kernel.
type Option func(*Kernel) error

func WithLogger(logger Logger) Option {
	return func(k *Kernel) error {
		if logger != nil {
			k.logger = logger
		}
		return nil
	}
}

// WithObserver reports every function invocation to observer.
func WithObserver(observer observability.Observer) Option {
	return func(k *Kernel) error {
		k.observer = observer
		return nil
	}
}

func WithPlugins(plugins ...*Plugin) Option {
	return func(k *Kernel) error {
		for _, p := range plugins {
			if err := k.addPlugin(p); err != nil {
				return err
			}
		}
		return nil
	}
}

func WithServices(services ...Service) Option {
	return func(k *Kernel) error {
		for _, s := range services {
			if err := k.AddService(s, false); err != nil {
				return err
			}
		}
		return nil
	}
}

func WithFunctionInvocationFilter(filters ...FunctionInvocationFilter) Option {
	return func(k *Kernel) error {
		k.functionFilters = append(k.functionFilters, filters...)
		return nil
	}
}

func WithAutoFunctionInvocationFilter(filters ...AutoFunctionInvocationFilter) Option {
	return func(k *Kernel) error {
		k.autoFilters = append(k.autoFilters, filters...)
		return nil
	}
}

// New creates a kernel.
//
// Example:
//
//	k, err := kernel.New(
//	    kernel.WithLogger(log),
//	    kernel.WithPlugins(mathPlugin),
//	    kernel.WithServices(chatService),
//	)
func New(opts ...Option) (*Kernel, error) {
	k := &Kernel{
		plugins:  map[string]*Plugin{},
		services: map[string]Service{},
		logger:   nopLogger{},
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if err := opt(k); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// AddPlugin registers p. Plugin names are unique, case-insensitively.
func (k *Kernel) AddPlugin(p *Plugin) error {
	return k.addPlugin(p)
}

func (k *Kernel) addPlugin(p *Plugin) error {
	if p == nil || !nameRegex.MatchString(p.Name) {
		name := ""
		if p != nil {
			name = p.Name
		}
		return fmt.Errorf("%w: %q", ErrInvalidPluginName, name)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	key := strings.ToLower(p.Name)
	if _, ok := k.plugins[key]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, p.Name)
	}
	k.plugins[key] = p
	k.pluginOrder = append(k.pluginOrder, key)
	return nil
}

// AddFunction adds fn to the plugin pluginName, creating the plugin if it
// does not exist.
func (k *Kernel) AddFunction(pluginName string, fn Function) error {
	k.mu.Lock()
	if p, ok := k.plugins[strings.ToLower(pluginName)]; ok {
		defer k.mu.Unlock()
		return p.AddFunction(fn)
	}
	k.mu.Unlock()

	p, err := NewPlugin(pluginName, "", fn)
	if err != nil {
		return err
	}
	return k.addPlugin(p)
}

// Plugin returns the plugin named name.
func (k *Kernel) Plugin(name string) (*Plugin, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	p, ok := k.plugins[strings.ToLower(name)]
	return p, ok
}

// Plugins returns the plugins in registration order.
func (k *Kernel) Plugins() []*Plugin {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]*Plugin, 0, len(k.pluginOrder))
	for _, key := range k.pluginOrder {
		out = append(out, k.plugins[key])
	}
	return out
}

// GetFunction looks up pluginName/functionName.
func (k *Kernel) GetFunction(pluginName, functionName string) (Function, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	p, ok := k.plugins[strings.ToLower(pluginName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginName)
	}
	fn, ok := p.Get(functionName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, contents.JoinName(pluginName, functionName))
	}
	return fn, nil
}

// GetFunctionFromFQN looks up a "plugin-function" name. A name without a
// plugin part resolves to the first plugin, in registration order, that
// has a function of that name.
func (k *Kernel) GetFunctionFromFQN(fullyQualifiedName string) (Function, error) {
	plugin, function := contents.SplitName(fullyQualifiedName)
	return k.lookupFunction(plugin, function)
}

func (k *Kernel) lookupFunction(pluginName, functionName string) (Function, error) {
	if pluginName != "" {
		return k.GetFunction(pluginName, functionName)
	}
	for _, p := range k.Plugins() {
		if fn, ok := p.Get(functionName); ok {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFunctionNotFound, functionName)
}

// FunctionsMetadata lists the metadata of all functions that pass filters.
func (k *Kernel) FunctionsMetadata(filters *FunctionChoiceFilters) ([]*FunctionMetadata, error) {
	if err := filters.validate(); err != nil {
		return nil, err
	}
	var out []*FunctionMetadata
	for _, p := range k.Plugins() {
		for _, m := range p.Metadata() {
			if filters.allows(m) {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// Invoke runs fn through the function-invocation filters.
func (k *Kernel) Invoke(ctx context.Context, fn Function, args Arguments) (*FunctionResult, error) {
	if args == nil {
		args = Arguments{}
	}
	meta := fn.Metadata()
	ctx, span := k.tracer.Start(ctx, "kernel.invoke "+meta.FullyQualifiedName(),
		trace.WithAttributes(
			attribute.String("kernel.plugin", meta.PluginName),
			attribute.String("kernel.function", meta.Name),
		))
	defer span.End()

	start := time.Now()
	ic := &FunctionInvocationContext{Function: fn, Kernel: k, Arguments: args}
	run := chain(functionFilters(k.filterSnapshot()), func(ctx context.Context, ic *FunctionInvocationContext) error {
		res, err := ic.Function.Invoke(ctx, ic.Kernel, ic.Arguments)
		if err != nil {
			return err
		}
		ic.Result = res
		return nil
	})
	err := run(ctx, ic)
	k.observeOperation("invoke_function", meta.Name, meta.PluginName, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		k.logger.Debug("function invocation failed", err, map[string]interface{}{
			"function": meta.FullyQualifiedName(),
		})
		return nil, err
	}
	if ic.Result == nil {
		ic.Result = &FunctionResult{Function: meta}
	}
	return ic.Result, nil
}

// InvokeStream runs fn and hands each partial result to handler. Functions
// that cannot stream produce a single chunk.
func (k *Kernel) InvokeStream(ctx context.Context, fn Function, args Arguments, handler func(chunk any) error) error {
	if args == nil {
		args = Arguments{}
	}
	meta := fn.Metadata()
	ctx, span := k.tracer.Start(ctx, "kernel.invoke_stream "+meta.FullyQualifiedName())
	defer span.End()

	start := time.Now()
	ic := &FunctionInvocationContext{Function: fn, Kernel: k, Arguments: args, IsStreaming: true}
	run := chain(functionFilters(k.filterSnapshot()), func(ctx context.Context, ic *FunctionInvocationContext) error {
		if s, ok := ic.Function.(StreamingFunction); ok {
			return s.InvokeStream(ctx, ic.Kernel, ic.Arguments, handler)
		}
		res, err := ic.Function.Invoke(ctx, ic.Kernel, ic.Arguments)
		if err != nil {
			return err
		}
		ic.Result = res
		return handler(res.Value)
	})
	err := run(ctx, ic)
	k.observeOperation("invoke_function_stream", meta.Name, meta.PluginName, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Clone returns a kernel with copies of the plugin and service registries
// and filter lists. Plugins and services themselves are shared.
func (k *Kernel) Clone() *Kernel {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := &Kernel{
		plugins:         make(map[string]*Plugin, len(k.plugins)),
		pluginOrder:     append([]string(nil), k.pluginOrder...),
		services:        make(map[string]Service, len(k.services)),
		serviceOrder:    append([]string(nil), k.serviceOrder...),
		functionFilters: append([]FunctionInvocationFilter(nil), k.functionFilters...),
		autoFilters:     append([]AutoFunctionInvocationFilter(nil), k.autoFilters...),
		logger:          k.logger,
		observer:        k.observer,
		tracer:          k.tracer,
	}
	for key, p := range k.plugins {
		out.plugins[key] = p
	}
	for key, s := range k.services {
		out.services[key] = s
	}
	return out
}

// AddFunctionInvocationFilter appends a filter after the existing ones.
func (k *Kernel) AddFunctionInvocationFilter(filter FunctionInvocationFilter) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.functionFilters = append(k.functionFilters, filter)
}

// AddAutoFunctionInvocationFilter appends a filter after the existing ones.
func (k *Kernel) AddAutoFunctionInvocationFilter(filter AutoFunctionInvocationFilter) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.autoFilters = append(k.autoFilters, filter)
}

// Logger returns the kernel logger, never nil.
func (k *Kernel) Logger() Logger { return k.logger }

func (k *Kernel) filterSnapshot() []FunctionInvocationFilter {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]FunctionInvocationFilter(nil), k.functionFilters...)
}

func (k *Kernel) autoFilterSnapshot() []AutoFunctionInvocationFilter {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]AutoFunctionInvocationFilter(nil), k.autoFilters...)
}

// observeOperation notifies the observer about an operation if one is configured.
func (k *Kernel) observeOperation(operation, resource, subResource string, duration time.Duration, err error) {
	if k.observer == nil {
		return
	}
	k.observer.ObserveOperation(observability.OperationContext{
		Component:   "kernel",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
	})
}
