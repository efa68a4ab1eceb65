package kernel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

type addInput struct {
	A int `json:"a" jsonschema:"description=first operand"`
	B int `json:"b" jsonschema:"description=second operand"`
}

type greetInput struct {
	Name     string `json:"name"`
	Greeting string `json:"greeting,omitempty" jsonschema:"default=hello"`
}

func mathPlugin(t *testing.T) *Plugin {
	t.Helper()
	add := MustFunction("add", "Adds two numbers", func(ctx context.Context, in addInput) (int, error) {
		return in.A + in.B, nil
	}, WithReturnDescription("the sum"))
	fail := MustFunction("fail", "", func(ctx context.Context, in struct{}) (any, error) {
		return nil, errors.New("division by zero")
	})
	p, err := NewPlugin("math", "arithmetic", add, fail)
	require.NoError(t, err)
	return p
}

func TestNewFunctionReflectsParameters(t *testing.T) {
	fn, err := NewFunction("greet", "Greets", func(ctx context.Context, in greetInput) (string, error) {
		return in.Greeting + " " + in.Name, nil
	})
	require.NoError(t, err)

	meta := fn.Metadata()
	require.Len(t, meta.Parameters, 2)
	assert.Equal(t, "name", meta.Parameters[0].Name)
	assert.True(t, meta.Parameters[0].Required)
	assert.Equal(t, "string", meta.Parameters[0].Schema["type"])
	assert.Equal(t, "greeting", meta.Parameters[1].Name)
	assert.False(t, meta.Parameters[1].Required)
	assert.Equal(t, "hello", meta.Parameters[1].Default)
	assert.Equal(t, []string{"name"}, meta.RequiredParameters())

	schema := meta.JSONSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"name"}, schema["required"])
	assert.Contains(t, schema["properties"], "greeting")
}

func TestToolDefinitions(t *testing.T) {
	defs := ToolDefinitions(mathPlugin(t).Metadata())
	require.Len(t, defs, 2)

	assert.Equal(t, "math-add", defs[0].Name)
	assert.Equal(t, "Adds two numbers", defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
	assert.ElementsMatch(t, []string{"a", "b"}, defs[0].Parameters["required"])

	assert.Equal(t, "math-fail", defs[1].Name)
	assert.Empty(t, defs[1].Parameters["properties"])
	assert.NotContains(t, defs[1].Parameters, "required")
}

func TestNewFunctionRejectsInvalidInput(t *testing.T) {
	_, err := NewFunction("bad name", "", func(ctx context.Context, in struct{}) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrInvalidFunctionName)

	_, err = NewFunction("scalar", "", func(ctx context.Context, in int) (int, error) { return in, nil })
	assert.ErrorIs(t, err, ErrInvalidFunction)

	_, err = NewFunction[struct{}, int]("nilfn", "", nil)
	assert.ErrorIs(t, err, ErrInvalidFunction)
}

func TestPluginRegistration(t *testing.T) {
	p := mathPlugin(t)
	assert.Equal(t, 2, p.Len())

	fn, ok := p.Get("ADD")
	require.True(t, ok)
	assert.Equal(t, "math", fn.Metadata().PluginName)
	assert.Equal(t, "math-add", fn.Metadata().FullyQualifiedName())

	err := p.AddFunction(MustFunction("Add", "", func(ctx context.Context, in struct{}) (int, error) { return 0, nil }))
	assert.ErrorIs(t, err, ErrFunctionExists)

	_, err = NewPlugin("no-dash", "")
	assert.ErrorIs(t, err, ErrInvalidPluginName)
}

func TestFunctionSharedAcrossPlugins(t *testing.T) {
	now := MustFunction("now", "", func(ctx context.Context, in struct{}) (string, error) { return "noon", nil })
	a := MustPlugin("a", "", now)
	b := MustPlugin("b", "", now)

	fa, _ := a.Get("now")
	fb, _ := b.Get("now")
	assert.Equal(t, "a", fa.Metadata().PluginName)
	assert.Equal(t, "b", fb.Metadata().PluginName)
	assert.Empty(t, now.Metadata().PluginName)
}

func TestKernelPluginsAndLookup(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)

	assert.ErrorIs(t, k.AddPlugin(MustPlugin("MATH", "")), ErrPluginExists)

	fn, err := k.GetFunctionFromFQN("math-add")
	require.NoError(t, err)
	assert.Equal(t, "add", fn.Metadata().Name)

	_, err = k.GetFunction("nope", "add")
	assert.ErrorIs(t, err, ErrPluginNotFound)
	_, err = k.GetFunction("math", "nope")
	assert.ErrorIs(t, err, ErrFunctionNotFound)

	require.NoError(t, k.AddFunction("time", MustFunction("now", "", func(ctx context.Context, in struct{}) (string, error) { return "", nil })))
	require.NoError(t, k.AddFunction("time", MustFunction("today", "", func(ctx context.Context, in struct{}) (string, error) { return "", nil })))
	p, ok := k.Plugin("time")
	require.True(t, ok)
	assert.Equal(t, 2, p.Len())
	assert.Len(t, k.Plugins(), 2)
}

func TestGetFunctionFromFQNWithoutPlugin(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)
	require.NoError(t, k.AddFunction("strings", MustFunction("add", "", func(ctx context.Context, in struct{}) (string, error) { return "", nil })))
	require.NoError(t, k.AddFunction("strings", MustFunction("upper", "", func(ctx context.Context, in struct{}) (string, error) { return "", nil })))

	fn, err := k.GetFunctionFromFQN("add")
	require.NoError(t, err)
	assert.Equal(t, "math-add", fn.Metadata().FullyQualifiedName())

	fn, err = k.GetFunctionFromFQN("UPPER")
	require.NoError(t, err)
	assert.Equal(t, "strings-upper", fn.Metadata().FullyQualifiedName())

	_, err = k.GetFunctionFromFQN("sqrt")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestFunctionsMetadataFilters(t *testing.T) {
	k, err := New(WithPlugins(
		mathPlugin(t),
		MustPlugin("time", "", MustFunction("now", "", func(ctx context.Context, in struct{}) (string, error) { return "", nil })),
	))
	require.NoError(t, err)

	all, err := k.FunctionsMetadata(nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyTime, err := k.FunctionsMetadata(&FunctionChoiceFilters{IncludedPlugins: []string{"time"}})
	require.NoError(t, err)
	require.Len(t, onlyTime, 1)
	assert.Equal(t, "time-now", onlyTime[0].FullyQualifiedName())

	noFail, err := k.FunctionsMetadata(&FunctionChoiceFilters{ExcludedFunctions: []string{"math-fail"}})
	require.NoError(t, err)
	assert.Len(t, noFail, 2)

	_, err = k.FunctionsMetadata(&FunctionChoiceFilters{IncludedPlugins: []string{"a"}, ExcludedPlugins: []string{"b"}})
	assert.ErrorIs(t, err, ErrConflictingFilters)
}

func TestInvokeRunsFiltersInOrder(t *testing.T) {
	var order []string
	var observed atomic.Int32
	k, err := New(
		WithPlugins(mathPlugin(t)),
		WithObserver(observability.ObserverFunc(func(ctx observability.OperationContext) {
			assert.Equal(t, "kernel", ctx.Component)
			assert.Equal(t, "add", ctx.Resource)
			observed.Add(1)
		})),
		WithFunctionInvocationFilter(
			func(ctx context.Context, ic *FunctionInvocationContext, next func(context.Context, *FunctionInvocationContext) error) error {
				order = append(order, "outer-before")
				err := next(ctx, ic)
				order = append(order, "outer-after")
				return err
			},
			func(ctx context.Context, ic *FunctionInvocationContext, next func(context.Context, *FunctionInvocationContext) error) error {
				order = append(order, "inner")
				ic.Arguments["b"] = 10
				return next(ctx, ic)
			},
		),
	)
	require.NoError(t, err)

	fn, err := k.GetFunction("math", "add")
	require.NoError(t, err)
	res, err := k.Invoke(context.Background(), fn, Arguments{"a": 1, "b": 2})
	require.NoError(t, err)

	assert.Equal(t, 11, res.Value)
	assert.Equal(t, "11", res.String())
	assert.Equal(t, "math", res.Function.PluginName)
	assert.Equal(t, []string{"outer-before", "inner", "outer-after"}, order)
	assert.EqualValues(t, 1, observed.Load())
}

func TestInvokeFilterCanOverrideResult(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)
	k.AddFunctionInvocationFilter(func(ctx context.Context, ic *FunctionInvocationContext, next func(context.Context, *FunctionInvocationContext) error) error {
		ic.Result = &FunctionResult{Function: ic.Function.Metadata(), Value: "cached"}
		return nil
	})

	fn, _ := k.GetFunction("math", "fail")
	res, err := k.Invoke(context.Background(), fn, nil)
	require.NoError(t, err)
	v, ok := ValueAs[string](res)
	assert.True(t, ok)
	assert.Equal(t, "cached", v)
}

func TestValueAs(t *testing.T) {
	res := &FunctionResult{Value: 42}
	n, ok := ValueAs[int](res)
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = ValueAs[string](res)
	assert.False(t, ok)
	_, ok = ValueAs[int](nil)
	assert.False(t, ok)
}

func TestInvokeHonoursCancellation(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)
	fn, _ := k.GetFunction("math", "add")

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err = k.Invoke(ctx, fn, Arguments{"a": 1, "b": 1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvokeStreamFallsBackToSingleChunk(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)
	fn, _ := k.GetFunction("math", "add")

	var chunks []any
	err = k.InvokeStream(context.Background(), fn, Arguments{"a": 2, "b": 3}, func(chunk any) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []any{5}, chunks)
}

type fakeService struct{ id, model string }

func (s fakeService) ServiceID() string { return s.id }
func (s fakeService) ModelID() string   { return s.model }

type embeddingService struct{ fakeService }

func (embeddingService) Embed() {}

func TestServiceRegistry(t *testing.T) {
	k, err := New(WithServices(fakeService{id: "chat", model: "gpt"}))
	require.NoError(t, err)

	require.NoError(t, k.AddService(embeddingService{fakeService{model: "embed-small"}}, false))
	assert.ErrorIs(t, k.AddService(fakeService{id: "chat"}, false), ErrServiceExists)
	require.NoError(t, k.AddService(fakeService{id: "chat", model: "gpt-2"}, true))

	s, err := k.GetService("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-2", s.ModelID())

	emb, err := GetServiceAs[interface {
		Service
		Embed()
	}](k, "")
	require.NoError(t, err)
	assert.Equal(t, "embed-small", emb.ModelID())

	_, err = GetServiceAs[embeddingService](k, "chat")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	require.NoError(t, k.RemoveService("chat"))
	assert.Len(t, k.Services(), 1)
	k.RemoveAllServices()
	_, err = k.GetService("")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestCloneIsIndependent(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)

	c := k.Clone()
	require.NoError(t, c.AddPlugin(MustPlugin("extra", "")))
	assert.Len(t, k.Plugins(), 1)
	assert.Len(t, c.Plugins(), 2)
}

func TestFunctionChoiceBehaviorConstructors(t *testing.T) {
	assert.Equal(t, 5, Auto(true, nil).Attempts())
	assert.Equal(t, 0, Auto(false, nil).Attempts())
	assert.Equal(t, 1, Required(true, nil).Attempts())
	assert.Equal(t, 0, NoneInvoke(nil).Attempts())

	b := Auto(true, nil)
	b.MaximumAutoInvokeAttempts = 1000
	assert.Equal(t, MaximumInflightAutoInvokes, b.Attempts())
}

func TestFunctionChoiceConfigure(t *testing.T) {
	k, err := New(WithPlugins(mathPlugin(t)))
	require.NoError(t, err)

	cfg, err := Required(true, nil, "math-add").Configure(k)
	require.NoError(t, err)
	assert.Equal(t, FunctionChoiceRequired, cfg.Choice)
	require.Len(t, cfg.Functions, 1)
	assert.Equal(t, "math-add", cfg.Functions[0].FullyQualifiedName())

	cfg, err = (&FunctionChoiceBehavior{}).Configure(k)
	require.NoError(t, err)
	assert.Equal(t, FunctionChoiceAuto, cfg.Choice)
	assert.Len(t, cfg.Functions, 2)

	_, err = Auto(true, &FunctionChoiceFilters{IncludedFunctions: []string{"x"}, ExcludedFunctions: []string{"y"}}).Configure(k)
	assert.ErrorIs(t, err, ErrConflictingFilters)
}

func TestSettingsClone(t *testing.T) {
	temp := 0.2
	s := &PromptExecutionSettings{
		Temperature:            &temp,
		StopSequences:          []string{"END"},
		FunctionChoiceBehavior: Auto(true, nil),
		Extra:                  map[string]any{"k": "v"},
	}
	c := s.Clone()
	c.StopSequences[0] = "STOP"
	c.FunctionChoiceBehavior.AutoInvoke = false
	c.Extra["k"] = "w"

	assert.Equal(t, "END", s.StopSequences[0])
	assert.True(t, s.FunctionChoiceBehavior.AutoInvoke)
	assert.Equal(t, "v", s.Extra["k"])
	assert.Equal(t, 1, (*PromptExecutionSettings)(nil).ResponseCount())
}
