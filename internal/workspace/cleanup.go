// Package workspace maintains the scratch area runs work in.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupStale removes entries of dir named with prefix and older than
// maxAge. They are left behind by runs that were killed before their own
// cleanup ran. It returns how many entries were removed.
func CleanupStale(dir, prefix string, maxAge time.Duration, now time.Time) int {
	if maxAge <= 0 {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("stale workspace scan skipped")
		return 0
	}
	removed := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to remove stale workspace")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Str("dir", dir).Msg("removed stale workspaces")
	}
	return removed
}
