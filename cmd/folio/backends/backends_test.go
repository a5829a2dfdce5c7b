package backends_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/cmd/folio/backends"
	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/eventstream/kafka"
	"github.com/papercomputeco/folio/pkg/eventstream/nop"
	"github.com/papercomputeco/folio/pkg/logger"
	"github.com/papercomputeco/folio/pkg/storage/inmemory"
	"github.com/papercomputeco/folio/pkg/storage/sqlite"
)

var _ = Describe("NewCompleter", func() {
	It("targets the upstream chat completions route", func() {
		cfg := config.NewDefaultConfig()
		cfg.Upstream.BaseURL = "http://upstream.test/v1"

		client, err := backends.NewCompleter(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Endpoint()).To(Equal("http://upstream.test/v1/chat/completions"))
	})

	It("rejects an invalid timeout", func() {
		cfg := config.NewDefaultConfig()
		cfg.Upstream.Timeout = "soon"

		_, err := backends.NewCompleter(cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("invalid upstream.timeout")))
	})
})

var _ = Describe("OpenStorage", func() {
	var (
		ctx context.Context
		cfg *config.Config
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		dir = GinkgoT().TempDir()
	})

	It("returns nil when storage is disabled", func() {
		cfg.Storage.Provider = config.StorageNone
		driver, err := backends.OpenStorage(ctx, cfg, dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeNil())
	})

	It("opens in-memory storage", func() {
		cfg.Storage.Provider = config.StorageMemory
		driver, err := backends.OpenStorage(ctx, cfg, dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens sqlite in the config directory by default", func() {
		driver, err := backends.OpenStorage(ctx, cfg, dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)

		Expect(driver).To(BeAssignableToTypeOf(&sqlite.SQLiteDriver{}))
		Expect(filepath.Join(dir, config.DefaultSQLiteFile)).To(BeAnExistingFile())
	})

	It("requires a DSN for postgres", func() {
		cfg.Storage.Provider = config.StoragePostgres
		_, err := backends.OpenStorage(ctx, cfg, dir, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("postgres_dsn is required")))
	})

	It("rejects unknown providers", func() {
		cfg.Storage.Provider = "mongo"
		_, err := backends.OpenStorage(ctx, cfg, dir, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown storage provider")))
	})
})

var _ = Describe("OpenPublisher", func() {
	It("falls back to the nop publisher", func() {
		publisher, err := backends.OpenPublisher(config.NewDefaultConfig(), logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(publisher).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher from the broker list", func() {
		cfg := config.NewDefaultConfig()
		cfg.EventStream.Provider = config.EventStreamKafka
		cfg.EventStream.Brokers = "localhost:9092, localhost:9093"

		publisher, err := backends.OpenPublisher(cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(publisher.Close)
		Expect(publisher).To(BeAssignableToTypeOf(&kafka.Publisher{}))
	})

	It("requires brokers for kafka", func() {
		cfg := config.NewDefaultConfig()
		cfg.EventStream.Provider = config.EventStreamKafka

		_, err := backends.OpenPublisher(cfg, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})
