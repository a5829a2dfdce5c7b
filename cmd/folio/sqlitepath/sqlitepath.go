// Package sqlitepath resolves the SQLite database used for turn storage.
package sqlitepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/folio/pkg/config"
	"github.com/papercomputeco/folio/pkg/dotdir"
)

// Memory is the go-sqlite3 in-memory database name.
const Memory = ":memory:"

// ResolveSQLitePath returns override when set, creating its parent
// directory, and otherwise folio.sqlite inside the resolved .folio/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	override = strings.TrimSpace(override)

	switch {
	case override == Memory:
		return override, nil

	case override != "":
		if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(override, "~/") {
			override = filepath.Join(home, override[2:])
		}
		if err := os.MkdirAll(filepath.Dir(override), 0o755); err != nil {
			return "", fmt.Errorf("creating sqlite directory: %w", err)
		}
		return override, nil
	}

	path, err := dotdir.NewManager().Path(configDir, config.DefaultSQLiteFile)
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	return path, nil
}
