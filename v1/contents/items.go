package contents

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FunctionNameSeparator joins plugin and function names into the name
// advertised to models ("plugin-function").
const FunctionNameSeparator = "-"

// NoReturnValue is sent to the model for functions that returned nothing.
const NoReturnValue = "Completed successfully with no return value"

const (
	itemTypeText           = "text"
	itemTypeFunctionCall   = "function_call"
	itemTypeFunctionResult = "function_result"
	itemTypeImage          = "image"
	itemTypeAudio          = "audio"
)

// Item is one piece of a chat message. The set of implementations is closed.
type Item interface {
	itemType() string
}

// TextContent is plain text.
type TextContent struct {
	Text string
}

func (*TextContent) itemType() string { return itemTypeText }

// FunctionCallContent is a function call requested by the model.
//
// Index is the position of the call inside the model response; streaming
// deltas of the same call share it.
type FunctionCallContent struct {
	ID           string
	Index        int
	PluginName   string
	FunctionName string
	Arguments    string
}

func (*FunctionCallContent) itemType() string { return itemTypeFunctionCall }

// NewFunctionCall builds a call from the fully qualified name the model returned.
func NewFunctionCall(id, fullyQualifiedName, arguments string) *FunctionCallContent {
	plugin, function := SplitName(fullyQualifiedName)
	return &FunctionCallContent{
		ID:           id,
		PluginName:   plugin,
		FunctionName: function,
		Arguments:    arguments,
	}
}

// SplitName splits "plugin-function" on the first separator. A name without
// separator has no plugin.
func SplitName(fullyQualifiedName string) (plugin, function string) {
	if i := strings.Index(fullyQualifiedName, FunctionNameSeparator); i >= 0 {
		return fullyQualifiedName[:i], fullyQualifiedName[i+len(FunctionNameSeparator):]
	}
	return "", fullyQualifiedName
}

// JoinName is the inverse of SplitName.
func JoinName(plugin, function string) string {
	if plugin == "" {
		return function
	}
	return plugin + FunctionNameSeparator + function
}

// FullyQualifiedName returns "plugin-function".
func (c *FunctionCallContent) FullyQualifiedName() string {
	return JoinName(c.PluginName, c.FunctionName)
}

// ParseArguments decodes the JSON arguments. Empty arguments decode to an
// empty map.
func (c *FunctionCallContent) ParseArguments() (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(c.Arguments) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	return args, nil
}

// FunctionResultContent is the outcome of a function call, sent back to
// the model as a tool message.
type FunctionResultContent struct {
	CallID       string
	PluginName   string
	FunctionName string
	Result       any
}

func (*FunctionResultContent) itemType() string { return itemTypeFunctionResult }

// NewFunctionResult builds the result for call.
func NewFunctionResult(call *FunctionCallContent, result any) *FunctionResultContent {
	return &FunctionResultContent{
		CallID:       call.ID,
		PluginName:   call.PluginName,
		FunctionName: call.FunctionName,
		Result:       result,
	}
}

// FullyQualifiedName returns "plugin-function".
func (r *FunctionResultContent) FullyQualifiedName() string {
	return JoinName(r.PluginName, r.FunctionName)
}

// String renders the result as the model will see it. Strings, errors and
// Stringers become their text, nil becomes NoReturnValue and everything
// else is JSON.
func (r *FunctionResultContent) String() string {
	switch v := r.Result.(type) {
	case nil:
		return NoReturnValue
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprint(r.Result)
	}
	return string(b)
}

// ToMessage wraps the result in a tool message.
func (r *FunctionResultContent) ToMessage() *ChatMessageContent {
	return &ChatMessageContent{
		Role:  RoleTool,
		Items: []Item{r},
	}
}

// ImageContent is an image, referenced by URI or carried inline.
type ImageContent struct {
	URI      string
	Data     []byte
	MimeType string
}

func (*ImageContent) itemType() string { return itemTypeImage }

// AudioContent is audio, referenced by URI or carried inline.
type AudioContent struct {
	URI      string
	Data     []byte
	MimeType string
}

func (*AudioContent) itemType() string { return itemTypeAudio }
