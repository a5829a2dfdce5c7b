package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/folio/internal/dagger"
)

// Build and return directory of folio binaries
func (f *Folio) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// mattn/go-sqlite3 needs cgo, so only the native platform is built
	return f.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", "/out/", "./cli/folio"}).
		Directory("/out")
}

// BuildRelease compiles a versioned release binary with embedded version info
func (f *Folio) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/folio/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/folio/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/folio/pkg/utils.Buildtime=%s'", buildtime),
	}

	return f.Build(ctx, strings.Join(ldflags, " "))
}
