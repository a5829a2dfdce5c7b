package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/storage"
	"github.com/papercomputeco/folio/pkg/storage/sqlite"
	"github.com/papercomputeco/folio/pkg/storage/storagetest"
)

var _ = Describe("SQLiteDriver", func() {
	storagetest.DriverBehaviors(func() storage.Driver {
		d, err := sqlite.NewSQLiteDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
		return d
	})

	Describe("NewSQLiteDriver", func() {
		It("creates a driver with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists turns across reopen", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Put(ctx, storagetest.NewTurn("kept", 0))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			got, err := s.Get(ctx, "kept")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Result.Result).To(Equal("Go services."))
		})

		It("fails for an unwritable path", func() {
			_, err := sqlite.NewSQLiteDriver(filepath.Join(GinkgoT().TempDir(), "missing", "dir", "test.db"))
			Expect(err).To(HaveOccurred())
		})
	})
})
