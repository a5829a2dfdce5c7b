// Package foliocmder is the root folio command.
package foliocmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/folio/cmd/folio/ask"
	chatcmder "github.com/papercomputeco/folio/cmd/folio/chat"
	configcmder "github.com/papercomputeco/folio/cmd/folio/config"
	historycmder "github.com/papercomputeco/folio/cmd/folio/history"
	initcmder "github.com/papercomputeco/folio/cmd/folio/init"
	servecmder "github.com/papercomputeco/folio/cmd/folio/serve"
	versioncmder "github.com/papercomputeco/folio/cmd/folio/version"
)

const folioLongDesc string = `folio is the chat assistant behind a personal portfolio site.

Run the chat server, talk to it, and inspect what it recorded:
  folio serve      Run the chat server (HTTP, SSE streaming and MCP)
  folio chat       Interactive chat with a running server
  folio ask        One-shot question straight to the upstream model
  folio history    List recorded chat turns
  folio config     Manage config.toml`

const folioShortDesc string = "folio - portfolio chat assistant"

func NewFolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "folio",
		Short:        folioShortDesc,
		Long:         folioLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .folio/ directory (default ./.folio or ~/.folio)")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
