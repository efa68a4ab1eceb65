// Package openai connects OpenAI and Azure OpenAI to the kernel through
// github.com/sashabaranov/go-openai.
//
// One Client serves four services:
//
//   - ChatModel: chat completions with tool calling, sync and streamed.
//     Wrap it in ai.FunctionCallingClient (Client.ChatCompletion does) to
//     get auto-invocation of kernel functions.
//   - EmbeddingGenerator: /embeddings with optional dimensions.
//   - ImageGenerator: /images/generations, returned inline.
//   - AudioGenerator: /audio/speech.
//
// Configuration comes from environment variables via NewConfig:
//
//	OPENAI_API_KEY, OPENAI_ORG_ID, OPENAI_BASE_URL,
//	OPENAI_CHAT_MODEL_ID, OPENAI_EMBEDDING_MODEL_ID,
//	AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY,
//	AZURE_OPENAI_API_VERSION, AZURE_OPENAI_DEPLOYMENT_NAME
//
// Usage:
//
//	client, err := openai.NewClient(*openai.NewConfig(), log)
//	if err != nil {
//	    return err
//	}
//	k, _ := kernel.New(kernel.WithServices(client.ChatCompletion(), client.EmbeddingGenerator()))
//
// Functions are advertised under their fully qualified name
// ("plugin-function"). FunctionChoiceBehavior maps to tool_choice "auto",
// "required" or "none"; parallel_tool_calls is only sent when set.
//
// Provider errors are classified into ai.ErrServiceRetryable,
// ai.ErrInvalidRequest, ai.ErrAuthentication and ai.ErrContentFiltered.
// The go-openai error stays in the chain for errors.As.
package openai
