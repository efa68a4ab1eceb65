/*
Package langchain adapts langchaingo models to the ai service interfaces.

Any llms.Model becomes an ai.ChatModel that can be driven by
ai.FunctionCallingClient, and any embeddings.Embedder becomes an
ai.EmbeddingGenerator:

	chat := ai.NewFunctionCallingClient(langchain.NewChatModel(llm, "local", "llama3.1"))
	gen := langchain.NewEmbeddingGenerator(embedder, "local_embedding", "nomic-embed-text")

Function calls travel as llms.ToolCall parts of AI messages and results as
llms.ToolCallResponse parts of tool messages. Whether tools are honoured
depends on the langchaingo provider.

Streaming uses llms.WithStreamingFunc for text. Function calls, finish
reason and usage are only known once the response completes and are sent
as a final chunk.
*/
package langchain
