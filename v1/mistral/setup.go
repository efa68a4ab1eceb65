package mistral

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
	"github.com/Aleph-Alpha/connectors/v1/observability"
	"github.com/Aleph-Alpha/connectors/v1/openai"
)

var validCallID = regexp.MustCompile(`^[A-Za-z0-9]{9}$`)

// Client is an OpenAI-compatible client pointed at the Mistral API.
type Client struct {
	*openai.Client
}

// NewClient builds the client. Mistral speaks the OpenAI chat wire format
// with two differences handled here: "required" tool choice is called
// "any", and tool call ids must be nine alphanumeric characters.
func NewClient(cfg Config, logger openai.Logger, observer observability.Observer) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ServiceID == "" {
		cfg.ServiceID = DefaultServiceID
	}
	if cfg.EmbeddingModelID == "" {
		cfg.EmbeddingModelID = DefaultEmbeddingModelID
	}

	c, err := openai.NewClient(openai.Config{
		ServiceID:        cfg.ServiceID,
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		ChatModelID:      cfg.ChatModelID,
		EmbeddingModelID: cfg.EmbeddingModelID,
	}, logger, openai.WithComponent("mistral"), openai.WithObserver(observer))
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}

// ChatModel returns the chat model with the Mistral request adjustments.
func (c *Client) ChatModel() *openai.ChatModel {
	return c.Client.ChatModel(adaptRequest)
}

// ChatCompletion wraps the chat model in the function-calling loop.
func (c *Client) ChatCompletion(opts ...ai.ClientOption) *ai.FunctionCallingClient {
	return ai.NewFunctionCallingClient(c.ChatModel(), opts...)
}

func adaptRequest(req *goopenai.ChatCompletionRequest, in *ai.ChatRequest) {
	if in.Tools != nil && in.Tools.Choice == kernel.FunctionChoiceRequired && len(req.Tools) > 0 {
		req.ToolChoice = "any"
	}
	req.StreamOptions = nil

	for i := range req.Messages {
		msg := &req.Messages[i]
		for j := range msg.ToolCalls {
			msg.ToolCalls[j].ID = CallID(msg.ToolCalls[j].ID)
		}
		if msg.ToolCallID != "" {
			msg.ToolCallID = CallID(msg.ToolCallID)
		}
	}
}

// CallID returns id if Mistral accepts it, otherwise a deterministic nine
// character replacement. Calls and their results map to the same value.
func CallID(id string) string {
	if validCallID.MatchString(id) {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:9]
}
