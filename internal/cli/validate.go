package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ErrNotDirectory is returned when a path exists but is not a directory.
var ErrNotDirectory = errors.New("path is not a directory")

// ResolveDirectory checks that the path exists and is a directory, then
// returns its absolute form.
func ResolveDirectory(dirPath string) (string, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %w", err)
		}
		return "", fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, dirPath)
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}
	return dirPath, nil
}

// ValidateAndResolveDirectory is ResolveDirectory for command entry points:
// it exits fatally on failure.
func ValidateAndResolveDirectory(dirPath string) string {
	resolved, err := ResolveDirectory(dirPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dirPath).Msg("Invalid directory")
	}
	return resolved
}

// ResolveOutputDirectory returns the absolute form of an output directory,
// which need not exist yet. An existing non-directory is rejected.
func ResolveOutputDirectory(dirPath string) (string, error) {
	if info, err := os.Stat(dirPath); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, dirPath)
	}
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dirPath, err)
	}
	return absPath, nil
}
