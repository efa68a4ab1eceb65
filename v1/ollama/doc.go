// Package ollama connects a local Ollama server through langchaingo.
//
// The chat model implements ai.ChatModel and the embedding model
// ai.EmbeddingGenerator. Ollama receives one text part per message, so
// function calls and their results appear in the conversation as text.
//
//	client, err := ollama.NewClient(ollama.Config{Model: "llama3.1"}, log)
//	chat := client.ChatCompletion()
package ollama
