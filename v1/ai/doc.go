// Package ai defines the AI service interfaces connectors implement and the
// function-calling loop that sits between a chat model and the kernel.
//
// A connector implements ChatModel: one request, translated to the
// provider's wire format. FunctionCallingClient wraps it into a
// ChatCompletion that handles tool calls:
//
//  1. send the history with the advertised functions;
//  2. stop if the first choice has no function calls;
//  3. append the assistant message, invoke every call through the kernel
//     and append the results in call order;
//  4. stop if an auto-function filter set Terminate;
//  5. repeat until the attempts of the FunctionChoiceBehavior are used up,
//     then send a last request without tools.
//
// Usage:
//
//	chat := ai.NewFunctionCallingClient(model, ai.WithLogger(log))
//	history := contents.NewChatHistory("You are a helpful assistant.")
//	history.AddUserMessage("What is 2+40?")
//
//	messages, err := chat.GetChatMessageContents(ctx, history,
//	    &kernel.PromptExecutionSettings{FunctionChoiceBehavior: kernel.Auto(true, nil)}, k)
//
// Prompt functions turn a text/template into a kernel function backed by
// a chat service:
//
//	summarize, err := ai.NewPromptFunction("summarize", "Summarize in one line: {{.input}}", nil)
//	k.AddFunction("writer", summarize)
package ai
