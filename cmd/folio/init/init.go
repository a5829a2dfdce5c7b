// Package initcmder provides the init command for initializing a local .folio
// directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .folio/ directory in the current working directory.

Creates a local .folio/ directory that takes precedence over the default
~/.folio/ directory for configuration, the turn database and the saved chat
session, and writes a config.toml with default values.

Use --preset to start from a known upstream (folio, openai, ollama). An
existing config.toml is left untouched.

Examples:
  folio init
  folio init --preset ollama`

const initShortDesc string = "Initialize a local .folio/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", fmt.Sprintf("Upstream preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func runInit(out io.Writer, preset string) error {
	cfg := config.NewDefaultConfig()
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .folio directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfger.GetTarget()); err == nil {
		fmt.Fprintf(out, "  %s Already initialized: %s\n", cliui.SuccessMark, dir)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Initialized .folio directory: %s\n", cliui.SuccessMark, dir)
	if preset != "" {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Preset:"), cliui.ValueStyle.Render(preset))
	}
	return nil
}
