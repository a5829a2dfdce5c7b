// Package historycmder provides the history command listing recorded chat
// turns.
package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/api"
	"github.com/papercomputeco/folio/cmd/folio/backends"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/transport"
	"github.com/papercomputeco/folio/pkg/utils"
)

const (
	defaultLimit = 20
	previewWidth = 60
)

var historyFlags = []string{
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagTarget,
}

type historyCommander struct {
	flags     map[string]*string
	limit     int
	configDir string

	cfg *config.Config
	out io.Writer
}

const historyLongDesc string = `List recorded chat turns, newest first.

Turns are read from the configured sqlite or postgres storage. When storage
is in-memory or disabled, the running folio server at client.target is asked
instead.

Examples:
  folio history
  folio history -n 5 --sqlite ./folio.sqlite`

const historyShortDesc string = "List recorded chat turns"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{flags: map[string]*string{}}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, historyFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	for _, key := range historyFlags {
		cmder.flags[key] = new(string)
		config.AddStringFlag(cmd, config.Flags, key, cmder.flags[key])
	}
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", defaultLimit, "Number of turns to show")

	return cmd
}

func (c *historyCommander) run(ctx context.Context) error {
	turns, err := c.turns(ctx)
	if err != nil {
		return err
	}

	if len(turns) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No recorded turns."))
		return nil
	}

	fmt.Fprintln(c.out)
	for _, turn := range turns {
		c.printTurn(turn)
	}
	return nil
}

func (c *historyCommander) turns(ctx context.Context) ([]*llm.Turn, error) {
	switch c.cfg.Storage.Provider {
	case config.StorageSQLite, config.StoragePostgres:
		driver, err := backends.OpenStorage(ctx, c.cfg, c.configDir, logger.Nop())
		if err != nil {
			return nil, err
		}
		defer driver.Close()

		return driver.List(ctx, c.limit)

	default:
		return c.remoteTurns(ctx)
	}
}

// remoteTurns asks a running server for its turns.
func (c *historyCommander) remoteTurns(ctx context.Context) ([]*llm.Turn, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.Client.Target, "/") + "/api/turns")
	if err != nil {
		return nil, fmt.Errorf("parsing client.target: %w", err)
	}
	u.RawQuery = url.Values{"limit": {strconv.Itoa(c.limit)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := transport.New(transport.Config{UserAgent: utils.UserAgent()}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching turns from %s: %w", c.cfg.Client.Target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body llm.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, body.Error)
	}

	var body api.TurnsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding turns: %w", err)
	}
	return body.Turns, nil
}

func (c *historyCommander) printTurn(turn *llm.Turn) {
	mark := cliui.SuccessMark
	if turn.Error != "" {
		mark = cliui.FailMark
	}

	fmt.Fprintf(c.out, "  %s %s %s %s\n",
		mark,
		cliui.IDStyle.Render(utils.Truncate(turn.ID, 8)),
		cliui.DimStyle.Render(turn.StartedAt.Local().Format("2006-01-02 15:04:05")),
		cliui.DimStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(turn.Duration()))),
	)

	if turn.Request != nil {
		fmt.Fprintf(c.out, "    %s %s\n",
			cliui.KeyStyle.Render("Q:"),
			utils.Truncate(utils.OneLine(turn.Request.Input), previewWidth),
		)
	}

	switch {
	case turn.Error != "":
		fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("!"), utils.Truncate(utils.OneLine(turn.Error), previewWidth))
	case turn.Result != nil:
		fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("A:"), utils.Truncate(utils.OneLine(turn.Result.Result), previewWidth))
	}
	fmt.Fprintln(c.out)
}
