// Package contents holds the conversation model shared by the kernel, the
// function-calling loop and every chat connector.
//
// A ChatHistory is an ordered list of ChatMessageContent values. A message
// has a role and a list of items: plain text, function calls requested by
// the model, function results produced by the kernel, images and audio.
//
//	history := contents.NewChatHistory("You are a helpful assistant.")
//	history.AddUserMessage("What is 2+3?")
//
//	// a model response asking for a tool
//	history.AddMessage(&contents.ChatMessageContent{
//		Role:  contents.RoleAssistant,
//		Items: []contents.Item{contents.NewFunctionCall("call_1", "math-add", `{"a":2,"b":3}`)},
//	})
//
// Streaming connectors emit StreamingChatMessageContent chunks; an
// Accumulator folds them back into one message, merging function-call
// deltas by their index.
//
// Histories serialise to JSON (used by the redis and postgres history
// stores) and can be shortened with a TruncationReducer, which never drops
// a function result without the assistant message that requested it.
package contents
