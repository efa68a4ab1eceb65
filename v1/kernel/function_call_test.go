package kernel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

func newTestKernel(t *testing.T, opts ...Option) *Kernel {
	t.Helper()
	k, err := New(append([]Option{WithPlugins(mathPlugin(t))}, opts...)...)
	require.NoError(t, err)
	return k
}

func TestInvokeFunctionCallAppendsResult(t *testing.T) {
	k := newTestKernel(t)
	history := contents.NewChatHistory("")

	call := contents.NewFunctionCall("call_1", "math-add", `{"a": 2, "b": 40}`)
	ac, err := k.InvokeFunctionCall(context.Background(), call, history, FunctionCallOptions{})
	require.NoError(t, err)
	require.NotNil(t, ac)
	assert.False(t, ac.Terminate)

	require.Equal(t, 1, history.Len())
	results := history.Last(1)[0].FunctionResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call_1", results[0].CallID)
	assert.Equal(t, "42", results[0].String())
}

func TestInvokeFunctionCallWithoutPluginPrefix(t *testing.T) {
	k := newTestKernel(t)
	history := contents.NewChatHistory("")

	call := contents.NewFunctionCall("call_1", "add", `{"a":1,"b":2}`)
	_, err := k.InvokeFunctionCall(context.Background(), call, history, FunctionCallOptions{
		AllowedFunctions: []string{"math-add"},
	})
	require.NoError(t, err)

	results := history.Last(1)[0].FunctionResults()
	require.Len(t, results, 1)
	assert.Equal(t, "3", results[0].String())
}

func TestExecuteFunctionCallMalformedArguments(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(
		"Received invalid arguments for function math-add: function call arguments are not a valid JSON object: unexpected end of JSON input. Trying tool call again.",
		nil, gomock.Any(),
	).Times(1)

	k := newTestKernel(t, WithLogger(log))
	result, ac, err := k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-add", `{"a": `), nil, FunctionCallOptions{})
	require.NoError(t, err)
	assert.Nil(t, ac)
	assert.Equal(t, MalformedArgumentsMessage, result.String())
}

func TestExecuteFunctionCallUnknownOrNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	k := newTestKernel(t, WithLogger(log))

	result, _, err := k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-sqrt", `{}`), nil, FunctionCallOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		"The tool call with name `math-sqrt` is not part of the provided tools, please try again with a supplied tool call name and make sure to validate the path.",
		result.String())

	result, _, err = k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-add", `{"a":1,"b":1}`), nil,
		FunctionCallOptions{AllowedFunctions: []string{"math-fail"}})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(FunctionNotFoundMessage, "math-add"), result.String())

	result, _, err = k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "add", `{"a":1,"b":1}`), nil,
		FunctionCallOptions{AllowedFunctions: []string{"math-fail"}})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(FunctionNotFoundMessage, "add"), result.String())
}

func TestExecuteFunctionCallMissingArguments(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info("function call is missing required arguments", nil, gomock.Any())
	k := newTestKernel(t, WithLogger(log))

	result, _, err := k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-add", `{"a": 1}`), nil, FunctionCallOptions{})
	require.NoError(t, err)
	assert.Equal(t,
		"There are `2` tool call arguments required and only `1` received. The required arguments are: [a b]. Please provide the required arguments and try again.",
		result.String())
}

func TestExecuteFunctionCallFunctionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Debug("function invocation failed", gomock.Any(), gomock.Any())
	log.EXPECT().Warn("function call failed", gomock.Any(), gomock.Any())
	k := newTestKernel(t, WithLogger(log))

	result, ac, err := k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-fail", ``), nil, FunctionCallOptions{})
	require.NoError(t, err)
	require.NotNil(t, ac)
	assert.Equal(t, "An error occurred while invoking the function math-fail: division by zero", result.String())
	assert.EqualError(t, ac.Result.Failure(), "division by zero")
}

func TestExecuteFunctionCallNilResult(t *testing.T) {
	k := newTestKernel(t)
	require.NoError(t, k.AddFunction("misc", MustFunction("noop", "", func(ctx context.Context, in struct{}) (any, error) {
		return nil, nil
	})))

	result, _, err := k.ExecuteFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "misc-noop", `{}`), nil, FunctionCallOptions{})
	require.NoError(t, err)
	assert.Equal(t, contents.NoReturnValue, result.String())
}

func TestAutoFilterTerminatesAndSeesSequence(t *testing.T) {
	k := newTestKernel(t)
	k.AddAutoFunctionInvocationFilter(func(ctx context.Context, ac *AutoFunctionInvocationContext, next func(context.Context, *AutoFunctionInvocationContext) error) error {
		assert.Equal(t, 2, ac.RequestSequenceIndex)
		assert.Equal(t, 1, ac.FunctionSequenceIndex)
		assert.Equal(t, 3, ac.FunctionCount)
		assert.NotNil(t, ac.ChatHistory)
		if err := next(ctx, ac); err != nil {
			return err
		}
		ac.Terminate = true
		return nil
	})

	history := contents.NewChatHistory("")
	ac, err := k.InvokeFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-add", `{"a":1,"b":2}`), history,
		FunctionCallOptions{RequestSequenceIndex: 2, FunctionSequenceIndex: 1, FunctionCount: 3})
	require.NoError(t, err)
	assert.True(t, ac.Terminate)
	assert.Equal(t, 3, ac.Result.Value)
}

func TestAutoFilterErrorIsReturned(t *testing.T) {
	boom := errors.New("filter failed")
	k := newTestKernel(t, WithAutoFunctionInvocationFilter(
		func(ctx context.Context, ac *AutoFunctionInvocationContext, next func(context.Context, *AutoFunctionInvocationContext) error) error {
			return boom
		},
	))

	history := contents.NewChatHistory("")
	_, err := k.InvokeFunctionCall(context.Background(),
		contents.NewFunctionCall("c", "math-add", `{"a":1,"b":2}`), history, FunctionCallOptions{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, history.Len())
}

func TestExecuteFunctionCallCancelled(t *testing.T) {
	k := newTestKernel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := k.ExecuteFunctionCall(ctx, contents.NewFunctionCall("c", "math-add", `{}`), nil, FunctionCallOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
