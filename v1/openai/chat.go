package openai

import (
	"context"
	"errors"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
)

// RequestModifier adjusts the wire request before it is sent. Connectors
// for OpenAI-compatible providers use it to patch provider quirks.
type RequestModifier func(req *goopenai.ChatCompletionRequest, in *ai.ChatRequest)

// ChatModel is the ai.ChatModel of an OpenAI chat deployment.
type ChatModel struct {
	client    *Client
	serviceID string
	modelID   string
	modifiers []RequestModifier
}

// ChatModel returns the chat model of the client.
func (c *Client) ChatModel(modifiers ...RequestModifier) *ChatModel {
	return &ChatModel{
		client:    c,
		serviceID: c.cfg.ServiceID,
		modelID:   c.cfg.ChatModelID,
		modifiers: modifiers,
	}
}

// ChatCompletion wraps the chat model in the function-calling loop.
func (c *Client) ChatCompletion(opts ...ai.ClientOption) *ai.FunctionCallingClient {
	return ai.NewFunctionCallingClient(c.ChatModel(), append([]ai.ClientOption{ai.WithLogger(c.logger)}, opts...)...)
}

// TextGeneration serves single prompts from the chat model.
func (c *Client) TextGeneration() *ai.ChatTextGeneration {
	return ai.NewChatTextGeneration(c.ChatCompletion())
}

func (m *ChatModel) ServiceID() string { return m.serviceID }
func (m *ChatModel) ModelID() string   { return m.modelID }

func (m *ChatModel) request(in *ai.ChatRequest) goopenai.ChatCompletionRequest {
	req := buildRequest(m.modelID, in)
	for _, modify := range m.modifiers {
		modify(&req, in)
	}
	return req
}

func (m *ChatModel) Complete(ctx context.Context, in *ai.ChatRequest) ([]*contents.ChatMessageContent, error) {
	req := m.request(in)

	start := time.Now()
	resp, err := m.client.api.CreateChatCompletion(ctx, req)
	err = classifyError(err)
	m.client.observeOperation("chat_completion", req.Model, time.Since(start), err, int64(resp.Usage.TotalTokens))
	if err != nil {
		m.client.logger.Error("chat completion failed", err, map[string]interface{}{
			"model":         req.Model,
			"request_index": in.RequestIndex,
		})
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return fromResponse(resp), nil
}

func (m *ChatModel) CompleteStream(ctx context.Context, in *ai.ChatRequest, handler ai.StreamHandler) (err error) {
	req := m.request(in)
	req.Stream = true
	if m.client.cfg.StreamUsage {
		req.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}
	}

	start := time.Now()
	var tokens int64
	defer func() {
		m.client.observeOperation("chat_completion_stream", req.Model, time.Since(start), err, tokens)
	}()

	stream, err := m.client.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return classifyError(err)
	}
	defer stream.Close()

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			return classifyError(recvErr)
		}
		for _, chunk := range fromStreamResponse(resp) {
			if chunk.Usage != nil {
				tokens = int64(chunk.Usage.TotalTokens())
			}
			if err := handler(chunk); err != nil {
				return err
			}
		}
	}
}
