package main

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// addThenAnswer asks for math-add on the first request and answers with
// the tool result afterwards.
type addThenAnswer struct {
	mu       sync.Mutex
	requests int
}

func (m *addThenAnswer) ServiceID() string { return "scripted" }
func (m *addThenAnswer) ModelID() string   { return "scripted-model" }

func (m *addThenAnswer) next(req *ai.ChatRequest) *contents.ChatMessageContent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	last := req.History.Last(1)[0]
	if last.Role == contents.RoleTool {
		return contents.NewTextMessage(contents.RoleAssistant, "The answer is "+last.FunctionResults()[0].String())
	}
	call := contents.NewFunctionCall("call_1", "math-add", `{"a": 1, "b": 2}`)
	return &contents.ChatMessageContent{
		Role:         contents.RoleAssistant,
		Items:        []contents.Item{call},
		FinishReason: contents.FinishReasonToolCalls,
	}
}

func (m *addThenAnswer) Complete(ctx context.Context, req *ai.ChatRequest) ([]*contents.ChatMessageContent, error) {
	return []*contents.ChatMessageContent{m.next(req)}, nil
}

func (m *addThenAnswer) CompleteStream(ctx context.Context, req *ai.ChatRequest, handler ai.StreamHandler) error {
	msg := m.next(req)
	for _, item := range msg.Items {
		if t, ok := item.(*contents.TextContent); ok {
			// two deltas per text
			half := len(t.Text) / 2
			for _, part := range []string{t.Text[:half], t.Text[half:]} {
				chunk := &contents.StreamingChatMessageContent{Role: contents.RoleAssistant, Items: []contents.Item{&contents.TextContent{Text: part}}}
				if err := handler(chunk); err != nil {
					return err
				}
			}
			continue
		}
		if err := handler(&contents.StreamingChatMessageContent{Role: contents.RoleAssistant, Items: []contents.Item{item}}); err != nil {
			return err
		}
	}
	return nil
}

// memoryHistory is an in-process contents.ChatHistoryStore.
type memoryHistory struct {
	mu       sync.Mutex
	sessions map[string][]*contents.ChatMessageContent
	appends  [][]*contents.ChatMessageContent
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{sessions: map[string][]*contents.ChatMessageContent{}}
}

func (s *memoryHistory) Load(ctx context.Context, id string) (*contents.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return contents.NewChatHistoryFrom(s.sessions[id]...), nil
}

func (s *memoryHistory) Append(ctx context.Context, id string, messages ...*contents.ChatMessageContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append(s.sessions[id], messages...)
	s.appends = append(s.appends, messages)
	return nil
}

func (s *memoryHistory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func newTestSession(t *testing.T, store contents.ChatHistoryStore, hooks ai.ChatHooks, opts ...kernel.Option) (*session, *addThenAnswer, *bytes.Buffer) {
	t.Helper()
	math, err := newMathPlugin()
	require.NoError(t, err)
	k, err := kernel.New(append([]kernel.Option{kernel.WithPlugins(math)}, opts...)...)
	require.NoError(t, err)

	model := &addThenAnswer{}
	out := &bytes.Buffer{}
	s := &session{
		id:       "s1",
		chat:     ai.NewFunctionCallingClient(model, ai.WithHooks(hooks)),
		kernel:   k,
		store:    store,
		out:      out,
		settings: &kernel.PromptExecutionSettings{FunctionChoiceBehavior: kernel.Auto(true, nil)},
	}
	return s, model, out
}

func TestSessionSend(t *testing.T) {
	store := newMemoryHistory()
	s, model, out := newTestSession(t, store, ai.ChatHooks{})
	require.NoError(t, s.load(context.Background(), "be brief"))

	answer, err := s.send(context.Background(), "what is 1+2?")
	require.NoError(t, err)
	assert.Equal(t, "The answer is 3", answer)
	assert.Equal(t, "The answer is 3\n", out.String())
	assert.Equal(t, 2, model.requests)

	// system, user, assistant call, tool result, answer
	messages := s.history.Messages()
	require.Len(t, messages, 5)
	assert.Equal(t, contents.RoleSystem, messages[0].Role)
	assert.Equal(t, contents.RoleTool, messages[3].Role)
	assert.Equal(t, "The answer is 3", messages[4].Content())

	require.Len(t, store.appends, 1)
	assert.Len(t, store.appends[0], 5)

	_, err = s.send(context.Background(), "again")
	require.NoError(t, err)
	require.Len(t, store.appends, 2)
	assert.Len(t, store.appends[1], 4, "only the new turn is appended")
	assert.Len(t, store.sessions["s1"], 9)
}

func TestSessionResumesStoredHistory(t *testing.T) {
	store := newMemoryHistory()
	require.NoError(t, store.Append(context.Background(), "s1",
		contents.NewTextMessage(contents.RoleSystem, "stored system"),
		contents.NewTextMessage(contents.RoleUser, "hi"),
		contents.NewTextMessage(contents.RoleAssistant, "hello"),
	))

	s, _, _ := newTestSession(t, store, ai.ChatHooks{})
	require.NoError(t, s.load(context.Background(), "ignored for existing sessions"))
	assert.Equal(t, 3, s.history.Len())
	assert.Equal(t, "stored system", s.history.Messages()[0].Content())

	_, err := s.send(context.Background(), "1+2")
	require.NoError(t, err)
	assert.Len(t, store.appends[1], 4)
	assert.Len(t, store.sessions["s1"], 7)
}

func TestSessionStream(t *testing.T) {
	s, _, out := newTestSession(t, nil, ai.ChatHooks{})
	s.stream = true
	require.NoError(t, s.load(context.Background(), ""))

	answer, err := s.send(context.Background(), "what is 1+2?")
	require.NoError(t, err)
	assert.Equal(t, "The answer is 3", answer)
	assert.Equal(t, "The answer is 3\n", out.String())

	last := s.history.Last(1)[0]
	assert.Equal(t, contents.RoleAssistant, last.Role)
	assert.Equal(t, "The answer is 3", last.Content())
	assert.Equal(t, 4, s.history.Len())
}

func TestSessionPublishesAuditEvents(t *testing.T) {
	var mu sync.Mutex
	var got []events.Event
	sink := events.SinkFunc(func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})

	s, _, _ := newTestSession(t, nil, ai.ChatHooks{},
		kernel.WithAutoFunctionInvocationFilter(events.NewAuditFilter(sink, nil)))
	require.NoError(t, s.load(context.Background(), ""))
	_, err := s.send(context.Background(), "1+2")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, events.FunctionInvoked, got[0].Type)
	assert.Equal(t, "math", got[0].Plugin)
	assert.Equal(t, "add", got[0].Function)
	assert.Equal(t, "call_1", got[0].CallID)
}

func TestReduceHistoryHook(t *testing.T) {
	var lengths []int
	reducer := reduceHistory(contents.TruncationReducer{TargetCount: 2, ThresholdCount: 0}, newTestLogger(t))
	hooks := ai.ChatHooks{
		BeforeRequest: func(ctx context.Context, req *ai.ChatRequest) {
			reducer(ctx, req)
			lengths = append(lengths, req.History.Len())
		},
	}
	s, _, _ := newTestSession(t, nil, hooks)
	require.NoError(t, s.load(context.Background(), "system"))
	for i := 0; i < 3; i++ {
		s.history.AddUserMessage("old")
		s.history.AddAssistantMessage("old answer")
	}

	_, err := s.send(context.Background(), "1+2")
	require.NoError(t, err)
	// the system message survives and the tool result keeps its call
	assert.Equal(t, []int{2, 3}, lengths)
	assert.Equal(t, contents.RoleSystem, s.history.Messages()[0].Role)
}

func TestFunctionChoice(t *testing.T) {
	b, err := functionChoice("auto", true)
	require.NoError(t, err)
	assert.Equal(t, kernel.FunctionChoiceAuto, b.Type)
	assert.True(t, b.AutoInvoke)
	assert.True(t, b.Options.AllowConcurrentInvocation)

	b, err = functionChoice("required", false)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Attempts())

	b, err = functionChoice("none", false)
	require.NoError(t, err)
	assert.False(t, b.AutoInvoke)

	_, err = functionChoice("sometimes", false)
	assert.Error(t, err)
}

type testLogger struct{ t *testing.T }

func newTestLogger(t *testing.T) testLogger { return testLogger{t: t} }

func (l testLogger) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.t.Logf("%s: %v", msg, err)
}
