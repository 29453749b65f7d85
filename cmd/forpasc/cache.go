package main

import (
	"os"
	"path/filepath"

	"github.com/lhaig/forpasc/internal/compiler"
)

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "forpasc", "cache.db")
}

// openCLICache opens the cache at cachePathFlag, creating its parent
// directory first since modernc.org/sqlite does not do that itself. An
// empty path (the user passed --cache="") opens a private in-memory
// cache scoped to this one process -- every build still benefits from
// within-process reuse, it just isn't persisted across invocations.
func openCLICache() (*compiler.Cache, error) {
	if cachePathFlag != "" {
		if err := os.MkdirAll(filepath.Dir(cachePathFlag), 0o755); err != nil {
			return nil, err
		}
	}
	return compiler.OpenCache(cachePathFlag)
}
