package ai

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"text/template"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

var (
	templateVariable = regexp.MustCompile(`{{-?\s*\.([A-Za-z_][A-Za-z0-9_]*)`)
	messageBlock     = regexp.MustCompile(`(?s)<message\s+role="([a-z]+)"\s*>(.*?)</message>`)
)

// PromptFunction renders a text/template over the invocation arguments
// and sends the result to a chat service.
//
// The rendered text becomes a single user message, unless it contains
// message blocks:
//
//	<message role="system">You are terse.</message>
//	<message role="user">{{.question}}</message>
//
// The template can call kernel functions with `call`:
//
//	Today is {{call "time-today"}}. {{.question}}
//
// String arguments and call results are HTML-escaped before rendering, so
// they cannot open or close message blocks, and unescaped again in the
// resulting messages.
type PromptFunction struct {
	meta     *kernel.FunctionMetadata
	tmpl     *template.Template
	settings *kernel.PromptExecutionSettings
	selector ServiceSelector
	// unsafeContent turns off escaping.
	unsafeContent bool
}

// PromptOption customises a prompt function.
type PromptOption func(*PromptFunction)

func WithDescription(description string) PromptOption {
	return func(f *PromptFunction) { f.meta.Description = description }
}

// WithInputVariables replaces the parameters detected from the template.
func WithInputVariables(params ...kernel.ParameterMetadata) PromptOption {
	return func(f *PromptFunction) { f.meta.Parameters = params }
}

func WithServiceSelector(selector ServiceSelector) PromptOption {
	return func(f *PromptFunction) { f.selector = selector }
}

// WithDangerouslySetContent renders arguments and call results verbatim.
// Only use it when every argument is trusted: a value containing message
// tags then changes the roles the model sees.
func WithDangerouslySetContent() PromptOption {
	return func(f *PromptFunction) { f.unsafeContent = true }
}

// NewPromptFunction parses tmpl. Every `{{.name}}` in the template becomes
// a required string parameter unless WithInputVariables says otherwise.
func NewPromptFunction(name, tmpl string, settings *kernel.PromptExecutionSettings, opts ...PromptOption) (*PromptFunction, error) {
	t, err := template.New(name).Funcs(template.FuncMap{
		"call": func(string, ...any) (string, error) { return "", nil },
	}).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}

	var params []kernel.ParameterMetadata
	var seen []string
	for _, m := range templateVariable.FindAllStringSubmatch(tmpl, -1) {
		if slices.Contains(seen, m[1]) {
			continue
		}
		seen = append(seen, m[1])
		params = append(params, kernel.ParameterMetadata{Name: m[1], Required: true})
	}

	f := &PromptFunction{
		meta: &kernel.FunctionMetadata{
			Name:       name,
			Parameters: params,
		},
		tmpl:     t,
		settings: settings,
		selector: DefaultServiceSelector{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *PromptFunction) Metadata() *kernel.FunctionMetadata { return f.meta }

// Invoke renders the prompt, runs it and returns the text of the first
// message. The full message is kept in the result metadata under "message".
func (f *PromptFunction) Invoke(ctx context.Context, k *kernel.Kernel, args kernel.Arguments) (*kernel.FunctionResult, error) {
	chat, history, err := f.prepare(ctx, k, args)
	if err != nil {
		return nil, err
	}
	messages, err := chat.GetChatMessageContents(ctx, history, f.settings, k)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrEmptyResponse
	}
	return &kernel.FunctionResult{
		Function: f.meta,
		Value:    messages[0].Content(),
		Metadata: map[string]any{
			"message": messages[0],
			"usage":   messages[0].Usage,
		},
	}, nil
}

// InvokeStream hands the text of every chunk to handler.
func (f *PromptFunction) InvokeStream(ctx context.Context, k *kernel.Kernel, args kernel.Arguments, handler func(chunk any) error) error {
	chat, history, err := f.prepare(ctx, k, args)
	if err != nil {
		return err
	}
	return chat.GetStreamingChatMessageContents(ctx, history, f.settings, k, func(chunk *contents.StreamingChatMessageContent) error {
		if text := chunk.Content(); text != "" {
			return handler(text)
		}
		return nil
	})
}

func (f *PromptFunction) prepare(ctx context.Context, k *kernel.Kernel, args kernel.Arguments) (ChatCompletion, *contents.ChatHistory, error) {
	chat, err := f.selector.SelectChatCompletion(k, f.settings)
	if err != nil {
		return nil, nil, err
	}
	rendered, err := f.render(ctx, k, args)
	if err != nil {
		return nil, nil, err
	}
	return chat, historyFromPrompt(rendered), nil
}

func (f *PromptFunction) render(ctx context.Context, k *kernel.Kernel, args kernel.Arguments) (string, error) {
	t, err := f.tmpl.Clone()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}
	t.Funcs(template.FuncMap{
		"call": func(fqn string, kv ...any) (string, error) {
			if k == nil {
				return "", fmt.Errorf("%w: call %s without kernel", ErrInvalidPrompt, fqn)
			}
			fn, err := k.GetFunctionFromFQN(fqn)
			if err != nil {
				return "", err
			}
			callArgs, err := pairs(kv)
			if err != nil {
				return "", err
			}
			res, err := k.Invoke(ctx, fn, callArgs)
			if err != nil {
				return "", err
			}
			if f.unsafeContent {
				return res.String(), nil
			}
			return html.EscapeString(res.String()), nil
		},
	})

	data := map[string]any(args)
	if !f.unsafeContent {
		data = escapeArguments(args)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPrompt, err)
	}
	return sb.String(), nil
}

func escapeArguments(args kernel.Arguments) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = escapeValue(v)
	}
	return out
}

// escapeValue escapes strings, also inside slices and maps. Other values
// are rendered by text/template as they are.
func escapeValue(v any) any {
	switch v := v.(type) {
	case string:
		return html.EscapeString(v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = html.EscapeString(s)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = escapeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = escapeValue(e)
		}
		return out
	}
	return v
}

func pairs(kv []any) (kernel.Arguments, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("%w: call arguments must be key value pairs", ErrInvalidPrompt)
	}
	args := kernel.Arguments{}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: call argument key %v is not a string", ErrInvalidPrompt, kv[i])
		}
		args[key] = kv[i+1]
	}
	return args, nil
}

func historyFromPrompt(rendered string) *contents.ChatHistory {
	blocks := messageBlock.FindAllStringSubmatch(rendered, -1)
	if len(blocks) == 0 {
		history := contents.NewChatHistory("")
		history.AddUserMessage(html.UnescapeString(strings.TrimSpace(rendered)))
		return history
	}
	history := contents.NewChatHistory("")
	for _, b := range blocks {
		history.AddMessage(contents.NewTextMessage(contents.AuthorRole(b[1]), html.UnescapeString(strings.TrimSpace(b[2]))))
	}
	return history
}

// InvokePrompt runs a one-off prompt through the kernel, so function
// invocation filters see it like any other function.
func InvokePrompt(ctx context.Context, k *kernel.Kernel, tmpl string, args kernel.Arguments, settings *kernel.PromptExecutionSettings, opts ...PromptOption) (*kernel.FunctionResult, error) {
	fn, err := NewPromptFunction("invoke_prompt", tmpl, settings, opts...)
	if err != nil {
		return nil, err
	}
	return k.Invoke(ctx, fn, args)
}
