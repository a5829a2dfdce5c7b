package historycmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/api"
	historycmder "github.com/papercomputeco/folio/cmd/folio/history"
	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/storage/sqlite"
	"github.com/papercomputeco/folio/pkg/storage/storagetest"
)

var _ = Describe("history command", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	execute := func(args ...string) (string, error) {
		cmd := historycmder.NewHistoryCmd()
		cmd.Flags().String("config-dir", configDir, "")

		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)

		err := cmd.Execute()
		return out.String(), err
	}

	Context("with sqlite storage", func() {
		var dbPath string

		BeforeEach(func() {
			dbPath = filepath.Join(configDir, "turns.sqlite")
			driver, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			ctx := context.Background()
			Expect(driver.Put(ctx, storagetest.NewTurn("turn-old", 0))).To(Succeed())

			failed := storagetest.NewTurn("turn-new", time.Minute)
			failed.Request.Input = "is the\nserver up?"
			failed.Result = nil
			failed.Error = "API request failed with status: 502"
			Expect(driver.Put(ctx, failed)).To(Succeed())
		})

		It("lists turns newest first", func() {
			out, err := execute("--storage", "sqlite", "--sqlite", dbPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(out).To(ContainSubstring("is the server up?"))
			Expect(out).To(ContainSubstring("status: 502"))
			Expect(out).To(ContainSubstring("Go services."))
			Expect(strings.Index(out, "server up")).To(BeNumerically("<", strings.Index(out, "what do you build?")))
		})

		It("honours the limit", func() {
			out, err := execute("--storage", "sqlite", "--sqlite", dbPath, "-n", "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("server up"))
			Expect(out).NotTo(ContainSubstring("what do you build?"))
		})
	})

	Context("with in-memory storage", func() {
		It("asks the running server", func() {
			var path, query string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path, query = r.URL.Path, r.URL.RawQuery
				turn := storagetest.NewTurn("turn-remote", 0)
				_ = json.NewEncoder(w).Encode(api.TurnsResponse{Count: 1, Turns: []*llm.Turn{turn}})
			}))
			DeferCleanup(srv.Close)

			out, err := execute("--storage", "memory", "--target", srv.URL, "-n", "3")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("/api/turns"))
			Expect(query).To(Equal("limit=3"))
			Expect(out).To(ContainSubstring("Go services."))
		})

		It("reports an empty history", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(api.TurnsResponse{Turns: []*llm.Turn{}})
			}))
			DeferCleanup(srv.Close)

			out, err := execute("--storage", "none", "--target", srv.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No recorded turns."))
		})

		It("surfaces server errors", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(llm.ErrorResponse{Error: "turn storage is disabled"})
			}))
			DeferCleanup(srv.Close)

			_, err := execute("--storage", "memory", "--target", srv.URL)
			Expect(err).To(MatchError(ContainSubstring("turn storage is disabled")))
		})
	})
})
