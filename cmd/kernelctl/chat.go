package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

var chatCommand = &cli.Command{
	Name:      "chat",
	Usage:     "Chat with the configured provider, letting it call the built-in plugins",
	ArgsUsage: "[message]",
	Description: "With a message as argument a single turn is run. Without, messages are read\n" +
		"line by line from stdin until EOF or \"exit\".",
	Action: chatAction,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "session",
			Aliases: []string{"s"},
			Usage:   "Session id the history is stored under. A new one is generated when empty",
		},
		&cli.StringFlag{
			Name:  "system",
			Usage: "System message for new sessions, overrides chat.system_message",
		},
		&cli.BoolFlag{
			Name:  "stream",
			Usage: "Print the response while it is generated",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Vector store collection the model may search through the docs plugin",
		},
		&cli.StringFlag{
			Name:  "function-choice",
			Usage: "auto, required or none",
			Value: string(kernel.FunctionChoiceAuto),
		},
		&cli.BoolFlag{
			Name:  "concurrent",
			Usage: "Invoke the function calls of one response concurrently",
		},
	},
}

func chatAction(c *cli.Context) error {
	a := appFrom(c)
	ctx := c.Context

	behavior, err := functionChoice(c.String("function-choice"), c.Bool("concurrent"))
	if err != nil {
		return err
	}

	var hooks ai.ChatHooks
	if n := a.cfg.Chat.MaxHistory; n > 0 {
		hooks.BeforeRequest = reduceHistory(contents.TruncationReducer{TargetCount: n, ThresholdCount: n}, a.log)
	}
	chat, err := a.chatCompletion(hooks)
	if err != nil {
		return err
	}

	plugins, err := a.chatPlugins()
	if err != nil {
		return err
	}
	if collection := c.String("collection"); collection != "" {
		search, err := a.textSearch()
		if err != nil {
			return err
		}
		docs, err := search.Plugin("docs", collection, "")
		if err != nil {
			return err
		}
		plugins = append(plugins, docs)
	}

	opts := []kernel.Option{
		kernel.WithLogger(a.log),
		kernel.WithObserver(a.metrics),
		kernel.WithPlugins(plugins...),
		kernel.WithServices(chat),
	}
	sink, err := a.eventSink()
	if err != nil {
		return err
	}
	if sink != nil {
		opts = append(opts, kernel.WithAutoFunctionInvocationFilter(events.NewAuditFilter(sink, a.log)))
	}
	k, err := kernel.New(opts...)
	if err != nil {
		return err
	}

	store, err := a.historyStore(ctx)
	if err != nil {
		return err
	}
	id := c.String("session")
	if id == "" {
		id = uuid.NewString()
	}
	system := c.String("system")
	if system == "" {
		system = a.cfg.Chat.SystemMessage
	}

	s := &session{
		id:     id,
		chat:   chat,
		kernel: k,
		store:  store,
		stream: c.Bool("stream"),
		out:    c.App.Writer,
		settings: &kernel.PromptExecutionSettings{
			MaxTokens:              a.cfg.Chat.MaxTokens,
			Temperature:            a.cfg.Chat.Temperature,
			FunctionChoiceBehavior: behavior,
		},
	}
	if err := s.load(ctx, system); err != nil {
		return err
	}
	a.log.Info("chat session ready", nil, map[string]interface{}{
		"session":  id,
		"provider": a.cfg.Provider,
		"model":    chat.ModelID(),
		"messages": s.history.Len(),
	})

	if c.Args().Len() > 0 {
		_, err := s.send(ctx, strings.Join(c.Args().Slice(), " "))
		return err
	}
	return s.repl(ctx, c.App.Reader, c.App.ErrWriter)
}

// chatPlugins are the plugins every chat gets. Media generation needs the
// OpenAI image and speech endpoints.
func (a *app) chatPlugins() ([]*kernel.Plugin, error) {
	timePlugin, err := newTimePlugin(time.Now)
	if err != nil {
		return nil, err
	}
	mathPlugin, err := newMathPlugin()
	if err != nil {
		return nil, err
	}
	plugins := []*kernel.Plugin{timePlugin, mathPlugin}

	if a.cfg.Provider != backendOpenAI {
		return plugins, nil
	}
	oa, err := a.openAIClient()
	if err != nil {
		return nil, err
	}
	var store mediaSaver
	if ms, err := a.mediaStore(); err != nil {
		return nil, err
	} else if ms != nil {
		store = ms
	}
	media, err := newMediaPlugin(oa.ImageGenerator(), oa.AudioGenerator(), store)
	if err != nil {
		return nil, err
	}
	return append(plugins, media), nil
}

func functionChoice(choice string, concurrent bool) (*kernel.FunctionChoiceBehavior, error) {
	var b *kernel.FunctionChoiceBehavior
	switch kernel.FunctionChoice(choice) {
	case kernel.FunctionChoiceAuto:
		b = kernel.Auto(true, nil)
	case kernel.FunctionChoiceRequired:
		b = kernel.Required(true, nil)
	case kernel.FunctionChoiceNone:
		b = kernel.NoneInvoke(nil)
	default:
		return nil, fmt.Errorf("unknown function choice %q", choice)
	}
	b.Options.AllowConcurrentInvocation = concurrent
	return b, nil
}

type historyLogger interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}

// reduceHistory shortens the history before every request of the loop.
func reduceHistory(r contents.TruncationReducer, log historyLogger) func(context.Context, *ai.ChatRequest) {
	return func(_ context.Context, req *ai.ChatRequest) {
		if _, err := r.Reduce(req.History); err != nil {
			log.Warn("failed to reduce chat history", err, nil)
		}
	}
}

// session is one conversation: its history, where it is stored and how
// responses are printed.
type session struct {
	id       string
	chat     *ai.FunctionCallingClient
	kernel   *kernel.Kernel
	store    contents.ChatHistoryStore
	settings *kernel.PromptExecutionSettings
	stream   bool
	out      io.Writer

	history *contents.ChatHistory
	stored  map[*contents.ChatMessageContent]bool
}

// load restores the history from the store. A new session starts with the
// system message, which is stored with the first turn.
func (s *session) load(ctx context.Context, system string) error {
	s.stored = make(map[*contents.ChatMessageContent]bool)
	if s.store != nil {
		h, err := s.store.Load(ctx, s.id)
		if err != nil {
			return fmt.Errorf("loading session %s: %w", s.id, err)
		}
		if h.Len() > 0 {
			s.history = h
			for _, m := range h.Messages() {
				s.stored[m] = true
			}
			return nil
		}
	}
	s.history = contents.NewChatHistory(system)
	return nil
}

// send runs one turn and returns the answer. Messages not yet in the store
// are appended to it afterwards.
func (s *session) send(ctx context.Context, text string) (string, error) {
	s.history.AddUserMessage(text)

	answer, err := s.complete(ctx)
	if err != nil {
		return "", err
	}
	if s.store == nil {
		return answer, nil
	}

	var added []*contents.ChatMessageContent
	for _, m := range s.history.Messages() {
		if !s.stored[m] {
			added = append(added, m)
		}
	}
	if err := s.store.Append(ctx, s.id, added...); err != nil {
		return answer, fmt.Errorf("saving session %s: %w", s.id, err)
	}
	for _, m := range added {
		s.stored[m] = true
	}
	return answer, nil
}

func (s *session) complete(ctx context.Context) (string, error) {
	if s.stream {
		return s.completeStream(ctx)
	}
	messages, err := s.chat.GetChatMessageContents(ctx, s.history, s.settings, s.kernel)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}
	final := messages[0]
	// A terminated loop returns the tool results, already in the history.
	if final.Role != contents.RoleTool {
		s.history.AddMessage(final)
	}
	answer := final.Content()
	fmt.Fprintln(s.out, answer)
	return answer, nil
}

// completeStream prints text deltas as they arrive. Only the text of the
// last request is kept as the answer: earlier requests ended in function
// calls and their messages are in the history already.
func (s *session) completeStream(ctx context.Context) (string, error) {
	var text strings.Builder
	round := lastMessage(s.history)
	err := s.chat.GetStreamingChatMessageContents(ctx, s.history, s.settings, s.kernel,
		func(chunk *contents.StreamingChatMessageContent) error {
			// The history only grows between requests.
			if last := lastMessage(s.history); last != round {
				round = last
				text.Reset()
			}
			delta := chunk.Content()
			text.WriteString(delta)
			_, err := io.WriteString(s.out, delta)
			return err
		})
	if err != nil {
		return "", err
	}
	fmt.Fprintln(s.out)

	answer := text.String()
	if answer != "" {
		s.history.AddAssistantMessage(answer)
	}
	return answer, nil
}

func lastMessage(h *contents.ChatHistory) *contents.ChatMessageContent {
	if last := h.Last(1); len(last) == 1 {
		return last[0]
	}
	return nil
}

// repl reads messages line by line until EOF or "exit".
func (s *session) repl(ctx context.Context, in io.Reader, prompt io.Writer) error {
	fmt.Fprintf(prompt, "session %s, type \"exit\" to quit\n", s.id)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(prompt, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if _, err := s.send(ctx, line); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
