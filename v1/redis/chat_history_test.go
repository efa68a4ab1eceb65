package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/contents"
)

func newTestClient(t *testing.T, cfg Config) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Host = mr.Host()
	cfg.Port = port

	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	client, err := NewClient(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestChatHistoryStore(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t, Config{})
	obs := &TestObserver{}
	client.WithObserver(obs)
	store := NewChatHistoryStore(client)

	empty, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	call := contents.NewFunctionCall("call-1", "math-add", `{"a":1,"b":2}`)
	assistant := &contents.ChatMessageContent{Role: contents.RoleAssistant, Items: []contents.Item{call}}
	tool := contents.NewFunctionResult(call, "3").ToMessage()

	require.NoError(t, store.Append(ctx, "s1", contents.NewTextMessage(contents.RoleUser, "add 1 and 2")))
	require.NoError(t, store.Append(ctx, "s1", assistant, tool))
	require.NoError(t, store.Append(ctx, "s1"))

	stored, err := mr.List("connectors:chat:s1")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.False(t, mr.Exists("connectors:chat:s2"))
	assert.Equal(t, time.Duration(0), mr.TTL("connectors:chat:s1"))

	history, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	msgs := history.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, contents.RoleUser, msgs[0].Role)
	assert.Equal(t, "add 1 and 2", msgs[0].Content())
	calls := msgs[1].FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
	assert.Equal(t, "math", calls[0].PluginName)
	assert.Equal(t, "add", calls[0].FunctionName)
	results := msgs[2].FunctionResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call-1", results[0].CallID)
	assert.Equal(t, "3", results[0].String())

	require.NoError(t, store.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("connectors:chat:s1"))

	ops := obs.GetOperations()
	require.NotEmpty(t, ops)
	assert.Equal(t, "history_load", ops[0].Operation)
	assert.Equal(t, "s1", ops[0].Resource)
}

func TestChatHistoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t, Config{KeyPrefix: "app:", HistoryTTL: time.Minute})
	store := NewChatHistoryStore(client)

	require.NoError(t, store.Append(ctx, "s1", contents.NewTextMessage(contents.RoleUser, "hi")))
	assert.Equal(t, time.Minute, mr.TTL("app:chat:s1"))

	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Append(ctx, "s1", contents.NewTextMessage(contents.RoleAssistant, "hello")))
	assert.Equal(t, time.Minute, mr.TTL("app:chat:s1"))

	mr.FastForward(2 * time.Minute)
	history, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, history.Len())
}

func TestChatHistoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t, Config{})
	store := NewChatHistoryStore(client)

	_, err := mr.Lpush("connectors:chat:broken", "{not json")
	require.NoError(t, err)
	_, err = store.Load(ctx, "broken")
	assert.ErrorIs(t, err, ErrCorruptHistory)

	mr.SetError("LOADING server is loading")
	err = store.Append(ctx, "s1", contents.NewTextMessage(contents.RoleUser, "hi"))
	assert.Error(t, err)
	mr.SetError("")

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Ping(ctx), ErrClosed)
}

func TestConfig(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_HISTORY_TTL", "1h")

	cfg := NewConfig()
	assert.Equal(t, "cache:6380", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.HistoryTTL)
	assert.Equal(t, DefaultKeyPrefix, cfg.KeyPrefix)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)

	assert.ErrorIs(t, Config{Port: 70000}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{HistoryTTL: -time.Second}.Validate(), ErrInvalidConfig)
}
