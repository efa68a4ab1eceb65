// Package mistral connects Mistral AI models. The API is OpenAI
// compatible, so the package reuses the openai connector with the Mistral
// base URL and patches the two wire differences: tool_choice "any" instead
// of "required", and nine character alphanumeric tool call ids.
//
//	client, err := mistral.NewClient(*mistral.NewConfig(), log, nil)
//	chat := client.ChatCompletion(ai.WithLogger(log))
package mistral
