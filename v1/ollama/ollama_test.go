package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/langchain"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type fakeServer struct {
	mu       sync.Mutex
	chats    [][]chatMessage
	models   []string
	embedded []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string        `json:"model"`
			Messages []chatMessage `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.chats = append(f.chats, req.Messages)
		f.models = append(f.models, req.Model)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"message":           map[string]string{"role": "assistant", "content": "hello there"},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        3,
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.embedded = append(f.embedded, req.Model+":"+req.Input)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{float32(len(req.Input)), 0.5}},
		})
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	ctrl := gomock.NewController(t)
	log := langchain.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	client, err := NewClient(Config{ServerURL: srv.URL, Model: "llama3.1"}, log)
	require.NoError(t, err)
	return client, fake
}

func TestChatCompletionSendsTextHistory(t *testing.T) {
	client, fake := newTestClient(t)

	history := contents.NewChatHistory("be kind")
	history.AddUserMessage("hi")
	call := contents.NewFunctionCall("c1", "time-now", "{}")
	history.AddMessage(&contents.ChatMessageContent{Role: contents.RoleAssistant, Items: []contents.Item{call}})
	history.AddToolMessage(contents.NewFunctionResult(call, "noon"))

	out, err := client.ChatCompletion().GetChatMessageContents(context.Background(), history, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hello there", out[0].Content())
	require.NotNil(t, out[0].Usage)
	assert.Equal(t, 15, out[0].Usage.TotalTokens())

	require.Len(t, fake.chats, 1)
	assert.Equal(t, "llama3.1", fake.models[0])
	assert.Equal(t, []chatMessage{
		{Role: "system", Content: "be kind"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "[call c1 time-now({})]"},
		{Role: "tool", Content: "[result c1 time-now] noon"},
	}, fake.chats[0])
}

func TestEmbeddingGeneratorUsesEmbeddingModel(t *testing.T) {
	client, fake := newTestClient(t)

	gen := client.EmbeddingGenerator()
	assert.Equal(t, "ollama_embedding", gen.ServiceID())
	assert.Equal(t, DefaultEmbeddingModelID, gen.ModelID())

	vectors, err := gen.GenerateEmbeddings(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(2), vectors[0][0])
	assert.Equal(t, float32(4), vectors[1][0])
	assert.Equal(t, []string{"nomic-embed-text:ab", "nomic-embed-text:abcd"}, fake.embedded)
}

func TestConfigRequiresModel(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	t.Setenv("OLLAMA_CHAT_MODEL_ID", "qwen2.5")
	t.Setenv("OLLAMA_PULL_MODEL", "true")
	cfg := NewConfig()
	assert.Equal(t, "qwen2.5", cfg.Model)
	assert.True(t, cfg.PullModel)
}
