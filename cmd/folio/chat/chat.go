// Package chatcmder provides the chat command for an interactive session with
// a folio server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/completion"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/transport"
	"github.com/papercomputeco/folio/pkg/utils"
)

var chatFlags = []string{
	config.FlagTarget,
	config.FlagModel,
}

type chatCommander struct {
	target    string
	model     string
	fresh     bool
	configDir string
	debug     bool

	cmd  *cobra.Command
	cfg  *config.Config
	in   io.Reader
	out  io.Writer
	ddm  *dotdir.Manager
	conv *conversationDoer

	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session with a folio server.

Replies are streamed as they are generated; reasoning, when the model exposes
it, is shown dimmed before the answer. Press Ctrl+C while a reply is streaming
to cancel it, and /exit or Ctrl+D to quit.

The conversation is saved to the .folio/ directory and resumed by the next
"folio chat". Use /reset or --new to start over.

Examples:
  folio chat
  folio chat --target https://folio.example.com --new`

const chatShortDesc string = "Interactive chat with a folio server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		in:  os.Stdin,
		out: os.Stdout,
		ddm: dotdir.NewManager(),
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.cmd = cmd
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new conversation instead of resuming the saved one")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	session, err := c.loadSession()
	if err != nil {
		return err
	}

	client, err := c.newClient(session.ConversationID)
	if err != nil {
		return err
	}

	c.printHeader(session, client.Endpoint())

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			fmt.Fprintln(c.out)
			return nil
		case "/reset":
			if err := c.ddm.ClearSession(c.configDir); err != nil {
				return err
			}
			session = &dotdir.Session{}
			c.conv.setID("")
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		reply, ok := c.exchange(ctx, client, session, input)
		if !ok {
			continue
		}

		session.ConversationID = c.conv.id()
		session.Messages = append(session.Messages,
			llm.NewTextMessage(llm.RoleUser, input),
			reply,
		)
		if err := c.ddm.SaveSession(session, c.configDir); err != nil {
			c.logger.Warn("could not save chat session", "error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func (c *chatCommander) loadSession() (*dotdir.Session, error) {
	if c.fresh {
		if err := c.ddm.ClearSession(c.configDir); err != nil {
			return nil, err
		}
		return &dotdir.Session{}, nil
	}

	session, err := c.ddm.LoadSession(c.configDir)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &dotdir.Session{}
	}
	return session, nil
}

func (c *chatCommander) newClient(conversationID string) (*completion.Client, error) {
	timeout, err := c.cfg.Upstream.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	c.conv = newConversationDoer(transport.New(transport.Config{
		Timeout:   timeout,
		UserAgent: utils.UserAgent(),
	}), conversationID)

	client, err := completion.New(completion.Config{
		BaseURL: c.cfg.Client.Target,
		Path:    c.cfg.Client.Path,
		Doer:    c.conv,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat client: %w", err)
	}
	return client, nil
}

func (c *chatCommander) printHeader(session *dotdir.Session, endpoint string) {
	fmt.Fprintln(c.out)
	if len(session.Messages) > 0 {
		fmt.Fprintf(c.out, "  %s Resuming %s %s\n",
			cliui.SuccessMark,
			cliui.IDStyle.Render(utils.Truncate(session.ConversationID, 13)),
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(session.Messages))),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.NameStyle.Render(endpoint),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. Ctrl+C cancels a reply, /exit or Ctrl+D quits."))
}

// exchange streams one reply. It reports false when the turn failed or was
// cancelled, in which case the input is not added to the session.
func (c *chatCommander) exchange(ctx context.Context, client *completion.Client, session *dotdir.Session, input string) (llm.Message, bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Ctrl-C only cancels the in-flight reply; at the prompt it exits as usual.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-stop:
		}
	}()

	req := &llm.CompletionRequest{
		Model:   c.cfg.Upstream.Model,
		Input:   input,
		History: session.Messages,
	}

	p := newReplyPrinter(c.out)
	var (
		result  *llm.Result
		callErr error
	)

	fmt.Fprint(c.out, cliui.AssistantPrompt)
	_, _ = client.Call(ctx, req, &completion.Options{Callbacks: &completion.Callbacks{
		OnChunk: p.chunk,
		OnDone:  func(r llm.Result) { result = &r },
		OnError: func(err error) { callErr = err },
	}})
	if callErr == nil && result != nil {
		p.settle(result.Result)
	}
	p.finish()

	switch {
	case callErr != nil:
		fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, callErr)
		return llm.Message{}, false
	case result == nil:
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("(cancelled)"))
		return llm.Message{}, false
	}

	fmt.Fprintln(c.out)
	return llm.Message{
		Role:             llm.RoleAssistant,
		Content:          result.Result,
		Reasoning:        result.Reasoning,
		ReasoningContent: result.ReasoningContent,
	}, true
}
