package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/logger"
)

var _ = Describe("WatchFile", func() {
	var (
		dir    string
		path   string
		cancel context.CancelFunc
		done   chan error
		calls  atomic.Int32
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, config.FileName)
		Expect(os.WriteFile(path, []byte("version = 0\n"), 0o600)).To(Succeed())

		calls.Store(0)
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		ready := make(chan struct{})
		go func() {
			close(ready)
			done <- config.WatchFile(ctx, path, logger.Nop(), func() { calls.Add(1) })
		}()
		<-ready
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("fires when the config file is rewritten", func() {
		Eventually(func() int32 {
			Expect(os.WriteFile(path, []byte("[chat]\nsystem_prompt = \"hi\"\n"), 0o600)).To(Succeed())
			return calls.Load()
		}).Should(BeNumerically(">=", 1))
	})

	It("ignores other files in the directory", func() {
		other := filepath.Join(dir, "session.json")
		for range 3 {
			Expect(os.WriteFile(other, []byte("{}"), 0o600)).To(Succeed())
		}
		Consistently(calls.Load, "200ms").Should(BeZero())
	})

	It("returns an error when the directory does not exist", func() {
		err := config.WatchFile(context.Background(), filepath.Join(dir, "missing", "config.toml"), logger.Nop(), func() {})
		Expect(err).To(MatchError(ContainSubstring("watching")))
	})
})
