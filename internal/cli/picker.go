package cli

import (
	"errors"
	"fmt"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickerCanceled is returned when the user dismisses a native dialog.
var ErrPickerCanceled = errors.New("selection canceled")

// PickTargetsFile opens a native file dialog for the target stems list.
func PickTargetsFile() (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Title("Select target stems file"),
		zenity.FileFilters{
			{
				Name:     "Text files",
				Patterns: []string{"*.txt", "*.list", "*.csv"},
			},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickerCanceled
		}
		return "", fmt.Errorf("file dialog failed: %w", err)
	}
	log.Debug().Str("path", selected).Msg("Targets file selected")
	return selected, nil
}

// PickDirectory opens a native folder dialog.
func PickDirectory(title string) (string, error) {
	selected, err := zenity.SelectFile(
		zenity.Directory(),
		zenity.Title(title),
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickerCanceled
		}
		return "", fmt.Errorf("folder dialog failed: %w", err)
	}
	return selected, nil
}
