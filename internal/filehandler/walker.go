package filehandler

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// WalkImages returns a lazy sequence of image file paths under root,
// recursing into subdirectories. Each file is admitted by its content
// signature; names and extensions are ignored.
//
// Every range over the sequence performs a fresh walk, so it can be
// iterated more than once. Order is whatever filepath.WalkDir yields and
// callers must not depend on it. Unreadable entries are logged and skipped;
// the walk never aborts early except when the consumer stops ranging.
// Symlinks to files are followed; symlinks to directories are skipped to
// prevent infinite loops.
func WalkImages(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		stopped := false
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil // Continue walking despite errors
			}

			if d.IsDir() {
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 {
				targetInfo, err := os.Stat(path)
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("Failed to stat symlink target, skipping")
					return nil
				}
				if targetInfo.IsDir() {
					log.Debug().Str("path", path).Msg("Skipping symlink to directory")
					return nil
				}
			} else if !d.Type().IsRegular() {
				return nil
			}

			format, err := SniffFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to read file, skipping")
				return nil
			}
			if format == "" {
				log.Debug().Str("path", path).Msg("Not an image, skipping")
				return nil
			}

			if !yield(path) {
				stopped = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			log.Warn().Err(err).Str("root", root).Msg("Directory walk ended early")
		}
	}
}

// CollectImages drains WalkImages into a slice, preserving walk order.
func CollectImages(root string) []string {
	var paths []string
	for p := range WalkImages(root) {
		paths = append(paths, p)
	}
	return paths
}
