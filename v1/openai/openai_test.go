package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	client, err := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/v1",
		ChatModelID: "gpt-test",
	}, log)
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func mathKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	add := kernel.MustFunction("add", "Adds two numbers", func(ctx context.Context, in addInput) (int, error) {
		return in.A + in.B, nil
	})
	k, err := kernel.New(kernel.WithPlugins(kernel.MustPlugin("math", "", add)))
	require.NoError(t, err)
	return k
}

func TestChatCompletionRunsToolCalls(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req goopenai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)

		switch calls.Add(1) {
		case 1:
			require.Len(t, req.Tools, 1)
			assert.Equal(t, "math-add", req.Tools[0].Function.Name)
			assert.Equal(t, "auto", req.ToolChoice)
			assert.Nil(t, req.ParallelToolCalls)
			writeJSON(t, w, goopenai.ChatCompletionResponse{
				ID:    "resp-1",
				Model: "gpt-test",
				Choices: []goopenai.ChatCompletionChoice{{
					FinishReason: goopenai.FinishReasonToolCalls,
					Message: goopenai.ChatCompletionMessage{
						Role: goopenai.ChatMessageRoleAssistant,
						ToolCalls: []goopenai.ToolCall{{
							ID:       "call_abc",
							Type:     goopenai.ToolTypeFunction,
							Function: goopenai.FunctionCall{Name: "math-add", Arguments: `{"a":20,"b":22}`},
						}},
					},
				}},
				Usage: goopenai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			})
		default:
			require.Len(t, req.Messages, 3)
			assert.Equal(t, "call_abc", req.Messages[1].ToolCalls[0].ID)
			assert.Equal(t, goopenai.ChatMessageRoleTool, req.Messages[2].Role)
			assert.Equal(t, "call_abc", req.Messages[2].ToolCallID)
			assert.Equal(t, "42", req.Messages[2].Content)
			writeJSON(t, w, goopenai.ChatCompletionResponse{
				Model: "gpt-test",
				Choices: []goopenai.ChatCompletionChoice{{
					FinishReason: goopenai.FinishReasonStop,
					Message:      goopenai.ChatCompletionMessage{Role: "assistant", Content: "It is 42."},
				}},
			})
		}
	})

	history := contents.NewChatHistory("")
	history.AddUserMessage("what is 20+22?")
	messages, err := client.ChatCompletion().GetChatMessageContents(context.Background(), history,
		&kernel.PromptExecutionSettings{FunctionChoiceBehavior: kernel.Auto(true, nil)}, mathKernel(t))
	require.NoError(t, err)

	require.Len(t, messages, 1)
	assert.Equal(t, "It is 42.", messages[0].Content())
	assert.Equal(t, contents.FinishReasonStop, messages[0].FinishReason)
	assert.EqualValues(t, 2, calls.Load())
}

func TestChatCompletionStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req goopenai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		index := 0
		events := []goopenai.ChatCompletionStreamResponse{
			{Model: "gpt-test", Choices: []goopenai.ChatCompletionStreamChoice{{Delta: goopenai.ChatCompletionStreamChoiceDelta{Role: "assistant", Content: "Hel"}}}},
			{Model: "gpt-test", Choices: []goopenai.ChatCompletionStreamChoice{{Delta: goopenai.ChatCompletionStreamChoiceDelta{Content: "lo"}}}},
			{Model: "gpt-test", Choices: []goopenai.ChatCompletionStreamChoice{{Delta: goopenai.ChatCompletionStreamChoiceDelta{
				ToolCalls: []goopenai.ToolCall{{Index: &index, ID: "call_1", Type: "function", Function: goopenai.FunctionCall{Name: "math-add", Arguments: `{"a":`}}},
			}}}},
			{Model: "gpt-test", Choices: []goopenai.ChatCompletionStreamChoice{{
				Delta:        goopenai.ChatCompletionStreamChoiceDelta{ToolCalls: []goopenai.ToolCall{{Index: &index, Function: goopenai.FunctionCall{Arguments: `1}`}}}},
				FinishReason: goopenai.FinishReasonToolCalls,
			}}},
		}
		for _, e := range events {
			b, err := json.Marshal(e)
			require.NoError(t, err)
			fmt.Fprintf(w, "data: %s\n\n", b)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	history := contents.NewChatHistory("")
	history.AddUserMessage("hi")

	var chunks []*contents.StreamingChatMessageContent
	err := client.ChatModel().CompleteStream(context.Background(), &ai.ChatRequest{History: history}, func(c *contents.StreamingChatMessageContent) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)

	msg := contents.Merge(chunks...)
	assert.Equal(t, "Hello", msg.Content())
	assert.Equal(t, contents.FinishReasonToolCalls, msg.FinishReason)
	calls := msg.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "math", calls[0].PluginName)
	assert.Equal(t, "add", calls[0].FunctionName)
	assert.Equal(t, `{"a":1}`, calls[0].Arguments)
}

func TestChatCompletionErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusTooManyRequests, "rate_limit_exceeded", ai.ErrServiceRetryable},
		{http.StatusBadGateway, "", ai.ErrServiceRetryable},
		{http.StatusUnauthorized, "invalid_api_key", ai.ErrAuthentication},
		{http.StatusBadRequest, "invalid_value", ai.ErrInvalidRequest},
		{http.StatusBadRequest, "content_filter", ai.ErrContentFiltered},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.status, tt.code), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"error":{"message":"nope","type":"error","code":%q}}`, tt.code)
			})
			history := contents.NewChatHistory("")
			history.AddUserMessage("hi")

			_, err := client.ChatModel().Complete(context.Background(), &ai.ChatRequest{History: history})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *goopenai.APIError
			assert.ErrorAs(t, err, &apiErr)
			assert.Equal(t, ai.IsRetryable(err), tt.want == ai.ErrServiceRetryable)
		})
	}
}

func TestBuildRequest(t *testing.T) {
	temp := 0.5
	parallel := false
	history := contents.NewChatHistory("be brief")
	history.AddMessage(&contents.ChatMessageContent{
		Role: contents.RoleUser,
		Items: []contents.Item{
			&contents.TextContent{Text: "what is this?"},
			&contents.ImageContent{Data: []byte{1, 2, 3}, MimeType: "image/jpeg"},
		},
	})
	history.AddMessage(contents.MergeToolMessages([]*contents.ChatMessageContent{
		contents.NewFunctionResult(&contents.FunctionCallContent{ID: "a"}, "one").ToMessage(),
		contents.NewFunctionResult(&contents.FunctionCallContent{ID: "b"}, nil).ToMessage(),
	}))

	k := mathKernel(t)
	tools, err := kernel.Required(true, nil).Configure(k)
	require.NoError(t, err)

	req := buildRequest("gpt-test", &ai.ChatRequest{
		History: history,
		Settings: &kernel.PromptExecutionSettings{
			ModelID:           "gpt-override",
			Temperature:       &temp,
			MaxTokens:         100,
			ParallelToolCalls: &parallel,
			ResponseFormat:    "json_schema",
			ResponseSchema:    map[string]any{"type": "object"},
		},
		Tools: tools,
	})

	assert.Equal(t, "gpt-override", req.Model)
	assert.InDelta(t, 0.5, req.Temperature, 1e-6)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Equal(t, "required", req.ToolChoice)
	assert.Equal(t, false, req.ParallelToolCalls)
	require.NotNil(t, req.ResponseFormat.JSONSchema)
	assert.Equal(t, "response", req.ResponseFormat.JSONSchema.Name)

	require.Len(t, req.Messages, 4)
	assert.Equal(t, "system", req.Messages[0].Role)
	require.Len(t, req.Messages[1].MultiContent, 2)
	assert.Equal(t, "data:image/jpeg;base64,AQID", req.Messages[1].MultiContent[1].ImageURL.URL)
	assert.Equal(t, "one", req.Messages[2].Content)
	assert.Equal(t, contents.NoReturnValue, req.Messages[3].Content)
	assert.Equal(t, "b", req.Messages[3].ToolCallID)

	none := buildRequest("gpt-test", &ai.ChatRequest{History: history, Tools: &kernel.FunctionChoiceConfiguration{Choice: kernel.FunctionChoiceAuto}})
	assert.Nil(t, none.Tools)
	assert.Nil(t, none.ToolChoice)
}

func TestEmbeddingsKeepInputOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultEmbeddingModelID, req["model"])

		writeJSON(t, w, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
			},
		})
	})

	gen := client.EmbeddingGenerator()
	assert.Equal(t, "openai_embedding", gen.ServiceID())
	vectors, err := gen.GenerateEmbeddings(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestImageGeneration(t *testing.T) {
	png := []byte("\x89PNG fake")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		var req goopenai.ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "512x512", req.Size)
		assert.Equal(t, goopenai.CreateImageResponseFormatB64JSON, req.ResponseFormat)
		writeJSON(t, w, map[string]any{
			"created": 1,
			"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	})

	img, err := client.ImageGenerator().GenerateImage(context.Background(), "a cat", 512, 512)
	require.NoError(t, err)
	assert.Equal(t, png, img.Data)
	assert.Equal(t, "image/png", img.MimeType)
}

func TestAudioGeneration(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		var req goopenai.CreateSpeechRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, goopenai.VoiceAlloy, req.Voice)
		assert.Equal(t, goopenai.SpeechResponseFormatWav, req.ResponseFormat)
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF"))
	})

	audio, err := client.AudioGenerator().GetAudioContent(context.Background(), "hello", &ai.TextToAudioSettings{ResponseFormat: "wav"})
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), audio.Data)
	assert.Equal(t, "audio/wav", audio.MimeType)

	_, err = client.AudioGenerator().GetAudioContent(context.Background(), "hello", &ai.TextToAudioSettings{ResponseFormat: "ogg"})
	assert.ErrorIs(t, err, ai.ErrInvalidRequest)
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-1")
	t.Setenv("OPENAI_CHAT_MODEL_ID", "gpt-4o")
	t.Setenv("OPENAI_EMBEDDING_DIMENSIONS", "256")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")

	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultServiceID, cfg.ServiceID)
	assert.Equal(t, 256, cfg.EmbeddingDimensions)
	assert.False(t, cfg.IsAzure())

	cfg = &Config{Azure: AzureConfig{Endpoint: "https://x.openai.azure.com", APIKey: "k"}}
	cfg.applyDefaults()
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	cfg.Azure.DeploymentName = "gpt4"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAzureAPIVersion, cfg.Azure.APIVersion)

	assert.ErrorIs(t, (&Config{}).Validate(), ErrInvalidConfig)
}
