// Package tooling holds the build housekeeping commands: removing build
// output and checking that every required page component exists.
package tooling

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// Clean removes each path recursively and returns the ones that existed.
// Missing paths are skipped.
func Clean(paths []string, log *zap.Logger) ([]string, error) {
	var removed []string

	for _, p := range paths {
		if p == "" {
			continue
		}

		if _, err := os.Lstat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Info("skip missing path", zap.String("path", p))
				continue
			}
			return removed, fmt.Errorf("stat %s: %w", p, err)
		}

		if err := os.RemoveAll(p); err != nil {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		log.Info("removed", zap.String("path", p))
		removed = append(removed, p)
	}

	return removed, nil
}
