package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/openai"
)

func TestCallID(t *testing.T) {
	assert.Equal(t, "abcDEF123", CallID("abcDEF123"))

	long := CallID("call_0123456789abcdef")
	assert.Len(t, long, 9)
	assert.Regexp(t, `^[A-Za-z0-9]{9}$`, long)
	assert.Equal(t, long, CallID("call_0123456789abcdef"))
	assert.NotEqual(t, long, CallID("call_other"))
}

func TestRequiredChoiceAndCallIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req goopenai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "any", req.ToolChoice)
		require.Len(t, req.Messages, 3)
		id := req.Messages[1].ToolCalls[0].ID
		assert.Regexp(t, `^[A-Za-z0-9]{9}$`, id)
		assert.Equal(t, id, req.Messages[2].ToolCallID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(goopenai.ChatCompletionResponse{
			Model: "mistral-small",
			Choices: []goopenai.ChatCompletionChoice{{
				Message:      goopenai.ChatCompletionMessage{Role: "assistant", Content: "done"},
				FinishReason: goopenai.FinishReasonStop,
			}},
		})
	}))
	defer srv.Close()

	ctrl := gomock.NewController(t)
	log := openai.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/v1", ChatModelID: "mistral-small"}, log, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultServiceID, client.ChatModel().ServiceID())
	assert.Equal(t, DefaultEmbeddingModelID, client.EmbeddingGenerator().ModelID())

	k, err := kernel.New(kernel.WithPlugins(kernel.MustPlugin("time", "",
		kernel.MustFunction("now", "", func(ctx context.Context, in struct{}) (string, error) { return "noon", nil }))))
	require.NoError(t, err)
	tools, err := kernel.Required(false, nil).Configure(k)
	require.NoError(t, err)

	history := contents.NewChatHistory("")
	history.AddUserMessage("time?")
	call := contents.NewFunctionCall("call_0123456789abcdef", "time-now", "{}")
	history.AddMessage(&contents.ChatMessageContent{Role: contents.RoleAssistant, Items: []contents.Item{call}})
	history.AddToolMessage(contents.NewFunctionResult(call, "noon"))

	messages, err := client.ChatModel().Complete(context.Background(), &ai.ChatRequest{History: history, Tools: tools})
	require.NoError(t, err)
	assert.Equal(t, "done", messages[0].Content())
}

func TestConfigValidation(t *testing.T) {
	t.Setenv("MISTRALAI_API_KEY", "k")
	t.Setenv("MISTRALAI_CHAT_MODEL_ID", "")
	assert.Error(t, NewConfig().Validate())

	t.Setenv("MISTRALAI_CHAT_MODEL_ID", "mistral-large-latest")
	assert.NoError(t, NewConfig().Validate())
}
