// Package backends builds the collaborators folio commands share from a
// resolved config: the upstream completion client, turn storage and the turn
// event publisher.
package backends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/folio/cmd/folio/sqlitepath"
	"github.com/papercomputeco/folio/pkg/completion"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/eventstream"
	"github.com/papercomputeco/folio/pkg/eventstream/kafka"
	"github.com/papercomputeco/folio/pkg/eventstream/nop"
	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/storage/inmemory"
	"github.com/papercomputeco/folio/pkg/storage/postgres"
	"github.com/papercomputeco/folio/pkg/storage/sqlite"
	"github.com/papercomputeco/folio/pkg/transport"
	"github.com/papercomputeco/folio/pkg/utils"
)

// NewCompleter creates a completion client for the configured upstream.
func NewCompleter(cfg *config.Config, log *slog.Logger) (*completion.Client, error) {
	timeout, err := cfg.Upstream.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	return completion.New(completion.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Doer: transport.New(transport.Config{
			Timeout:   timeout,
			UserAgent: utils.UserAgent(),
			APIKey:    cfg.Upstream.APIKey,
		}),
		Logger: log,
	})
}

// OpenStorage opens the configured turn storage. It returns nil, nil when
// storage is disabled.
func OpenStorage(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch cfg.Storage.Provider {
	case config.StorageNone:
		log.Info("turn storage disabled")
		return nil, nil

	case config.StorageMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case config.StorageSQLite, "":
		path, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}

		driver, err := sqlite.NewSQLiteDriver(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		log.Info("using SQLite storage", "path", path)
		return driver, nil

	case config.StoragePostgres:
		if cfg.Storage.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for postgres storage")
		}

		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		log.Info("using PostgreSQL storage", "dsn", utils.Mask(cfg.Storage.PostgresDSN))
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Storage.Provider)
	}
}

// OpenPublisher creates the configured turn event publisher. A disabled
// event stream yields the nop publisher.
func OpenPublisher(cfg *config.Config, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case config.EventStreamNone, "":
		return nop.NewPublisher(), nil

	case config.EventStreamKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: kafka.ParseBrokers(cfg.EventStream.Brokers),
			Topic:   cfg.EventStream.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Info("publishing turn events to kafka",
			"brokers", cfg.EventStream.Brokers,
			"topic", cfg.EventStream.Topic,
		)
		return publisher, nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", cfg.EventStream.Provider)
	}
}
