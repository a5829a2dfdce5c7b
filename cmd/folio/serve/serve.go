// Package servecmder provides the serve command running the folio chat server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/folio/api"
	mcpserver "github.com/papercomputeco/folio/api/mcp"
	"github.com/papercomputeco/folio/cmd/folio/backends"
	"github.com/papercomputeco/folio/pkg/cliui"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/telemetry"
	"github.com/papercomputeco/folio/pkg/utils"
	"github.com/papercomputeco/folio/recorder"
)

const shutdownTimeout = 10 * time.Second

// serveFlags lists the registry flags serve binds to viper.
var serveFlags = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagAPIKey,
	config.FlagModel,
	config.FlagSystemPrompt,
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagOTLPEndpoint,
}

type serveCommander struct {
	flags     map[string]*string
	configDir string
	debug     bool

	cmd    *cobra.Command
	cfg    *config.Config
	logger *slog.Logger
}

const serveLongDesc string = `Run the folio chat server.

The server answers POST /api/chat/completions for the portfolio site,
streaming OpenAI chat.completion.chunk frames when the caller accepts an
event stream. Every exchange is recorded to the configured storage and
announced on the configured event stream. An MCP endpoint exposing the
"ask" tool is mounted at /mcp.

Chat defaults (system prompt, sampling) are reloaded when config.toml changes.

Examples:
  folio serve
  folio serve --listen :9000 --upstream http://localhost:11434/v1 --model llama3.2
  folio serve --storage postgres --postgres-dsn postgres://folio@localhost/folio`

const serveShortDesc string = "Run the folio chat server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{flags: map[string]*string{}}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.cmd = cmd
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			cfg, err := cmder.loadConfig()
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	for _, key := range serveFlags {
		cmder.flags[key] = new(string)
		config.AddStringFlag(cmd, config.Flags, key, cmder.flags[key])
	}

	return cmd
}

// loadConfig resolves flags, environment, config.toml and defaults.
func (c *serveCommander) loadConfig() (*config.Config, error) {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, c.cmd, config.Flags, serveFlags)

	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (c *serveCommander) run(ctx context.Context) error {
	interactive := cliui.IsTerminal(os.Stderr)
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(interactive),
		logger.WithJSON(!interactive),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, c.cfg.Telemetry.OTLPEndpoint, utils.Version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			c.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	server, cleanup, err := c.newServer(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	go c.watchConfig(ctx, server)

	c.logger.Info("serving folio",
		"listen", c.cfg.Server.Listen,
		"upstream", c.cfg.Upstream.BaseURL,
		"model", c.cfg.Upstream.Model,
		"version", utils.Version,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("chat server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newServer wires the chat server. cleanup drains the recorder and closes
// storage and the publisher, in that order.
func (c *serveCommander) newServer(ctx context.Context) (*api.Server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*api.Server, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	completer, err := backends.NewCompleter(c.cfg, c.logger)
	if err != nil {
		return fail(fmt.Errorf("creating completion client: %w", err))
	}

	driver, err := backends.OpenStorage(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return fail(err)
	}
	if driver != nil {
		closers = append(closers, func() {
			if err := driver.Close(); err != nil {
				c.logger.Warn("closing storage", "error", err)
			}
		})
	}

	publisher, err := backends.OpenPublisher(c.cfg, c.logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing event publisher", "error", err)
		}
	})

	pool, err := recorder.NewPool(&recorder.Config{
		Driver:    driver,
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating recorder: %w", err))
	}
	closers = append(closers, pool.Close)

	mcpServer, err := mcpserver.NewServer(mcpserver.Config{
		Completer:    completer,
		Model:        c.cfg.Upstream.Model,
		SystemPrompt: c.cfg.Chat.SystemPrompt,
		Logger:       c.logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating MCP server: %w", err))
	}

	server, err := api.NewServer(api.Config{
		ListenAddr:   c.cfg.Server.Listen,
		ChatDefaults: chatDefaults(c.cfg),
	}, api.Deps{
		Completer: completer,
		Recorder:  pool,
		Storage:   driver,
		MCP:       mcpServer.Handler(),
		Logger:    c.logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating chat server: %w", err))
	}

	return server, cleanup, nil
}

// watchConfig reloads chat defaults whenever config.toml changes.
func (c *serveCommander) watchConfig(ctx context.Context, server *api.Server) {
	dir, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		c.logger.Warn("config reload disabled", "error", err)
		return
	}

	path := filepath.Join(dir, config.FileName)
	err = config.WatchFile(ctx, path, c.logger, func() {
		cfg, err := c.loadConfig()
		if err != nil {
			c.logger.Warn("ignoring invalid config change", "path", path, "error", err)
			return
		}
		server.UpdateChatDefaults(chatDefaults(cfg))
		c.logger.Info("reloaded chat defaults", "path", path)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("config watcher stopped", "error", err)
	}
}

func chatDefaults(cfg *config.Config) api.ChatDefaults {
	return api.ChatDefaults{
		Model:        cfg.Upstream.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Temperature:  cfg.Chat.Temperature,
		MaxTokens:    cfg.Chat.MaxTokens,
		TopP:         cfg.Chat.TopP,
	}
}
