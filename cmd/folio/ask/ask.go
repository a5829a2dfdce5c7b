// Package askcmder provides the ask command for one-shot questions sent
// straight to the upstream model.
package askcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/cmd/folio/backends"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
)

var askFlags = []string{
	config.FlagUpstream,
	config.FlagAPIKey,
	config.FlagModel,
	config.FlagSystemPrompt,
}

type askCommander struct {
	flags     map[string]*string
	location  string
	raw       bool
	configDir string
	debug     bool

	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

const askLongDesc string = `Ask the portfolio assistant a single question.

The question is sent directly to the configured upstream with the chat system
prompt and the full answer is printed once it is complete. On a terminal the
answer is rendered as markdown; use --raw for plain text.

Examples:
  folio ask "What projects are written in Go?"
  folio ask --location "Lyon, France" "Are you available for meetups?"`

const askShortDesc string = "Ask a one-shot question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{flags: map[string]*string{}}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, askFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	for _, key := range askFlags {
		cmder.flags[key] = new(string)
		config.AddStringFlag(cmd, config.Flags, key, cmder.flags[key])
	}
	cmd.Flags().StringVar(&cmder.location, "location", "", "Visitor location added to the system prompt")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question string) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(c.errOut))

	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New("question is empty")
	}

	client, err := backends.NewCompleter(c.cfg, c.logger)
	if err != nil {
		return err
	}

	req := &llm.CompletionRequest{
		Model:        c.cfg.Upstream.Model,
		Input:        question,
		SystemPrompt: c.systemPrompt(),
		Temperature:  c.cfg.Chat.Temperature,
		MaxTokens:    c.cfg.Chat.MaxTokens,
		TopP:         c.cfg.Chat.TopP,
	}

	var result *llm.Result
	call := func() error {
		var err error
		result, err = client.Call(ctx, req, nil)
		return err
	}

	interactive := cliui.IsTerminal(c.out)
	if interactive {
		err = cliui.Step(c.errOut, "Thinking", call)
	} else {
		err = call()
	}
	if err != nil {
		return fmt.Errorf("asking %s: %w", c.cfg.Upstream.Model, err)
	}
	if result == nil {
		return errors.New("request cancelled")
	}

	return c.print(result, interactive)
}

func (c *askCommander) systemPrompt() string {
	prompt := c.cfg.Chat.SystemPrompt
	if loc := strings.TrimSpace(c.location); loc != "" {
		prompt = strings.TrimSpace(prompt + "\n\nVisitor location: " + loc)
	}
	return prompt
}

func (c *askCommander) print(result *llm.Result, interactive bool) error {
	answer := result.Result
	if interactive && !c.raw {
		rendered, err := cliui.RenderMarkdown(answer, cliui.Width(c.out))
		if err != nil {
			c.logger.Debug("markdown rendering failed", "error", err)
		}
		answer = rendered
	}

	if _, err := fmt.Fprintln(c.out, strings.TrimRight(answer, "\n")); err != nil {
		return err
	}

	if result.FinishReason != llm.FinishReasonStop {
		fmt.Fprintf(c.errOut, "  %s %s\n",
			cliui.DimStyle.Render("finish reason:"),
			cliui.ValueStyle.Render(string(result.FinishReason)),
		)
	}
	return nil
}
