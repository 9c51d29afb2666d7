package filehandler

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// LoadFont parses the TTF/OTF font at path. An empty path returns the
// embedded Go Regular face, so rendering never depends on system fonts.
func LoadFont(path string) (*opentype.Font, error) {
	if path == "" {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded font: %w", err)
		}
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Loaded watermark font")
	return f, nil
}
