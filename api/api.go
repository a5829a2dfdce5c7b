package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/papercomputeco/folio/pkg/completion"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/recorder"
)

// Completer runs one chat completion. *completion.Client satisfies it.
type Completer interface {
	Call(ctx context.Context, req *llm.CompletionRequest, opts *completion.Options) (*llm.Result, error)
}

// Recorder accepts finished turns. *recorder.Pool satisfies it.
type Recorder interface {
	Enqueue(job recorder.Job) bool
}

// Deps are the collaborators injected into the server.
type Deps struct {
	// Completer is required.
	Completer Completer

	// Recorder receives every finished turn. Optional.
	Recorder Recorder

	// Storage serves /api/turns. Optional; the routes answer 503 without it.
	Storage storage.Driver

	// MCP is mounted at /mcp when set.
	MCP http.Handler

	Logger *slog.Logger
}

// Server is the folio chat server.
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	app    *fiber.App
	schema *jsonschema.Schema

	// mu guards config.ChatDefaults
	mu sync.RWMutex
}

// NewServer creates a new chat server.
func NewServer(config Config, deps Deps) (*Server, error) {
	if deps.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}

	schema, err := compileChatRequestSchema()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: deps.Logger,
		app:    app,
		schema: schema,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/api/chat/completions", s.handleChatCompletions)
	app.Get("/api/turns", s.handleListTurns)
	app.Get("/api/turns/:id", s.handleGetTurn)

	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	return s, nil
}

// UpdateChatDefaults swaps the model, prompt and sampling defaults used by
// subsequent requests. In-flight requests keep the values they started with.
func (s *Server) UpdateChatDefaults(d ChatDefaults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.ChatDefaults = d
}

func (s *Server) chatDefaults() ChatDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.ChatDefaults
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting chat server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting chat server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the server, waiting for open connections
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
