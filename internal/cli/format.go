package cli

import (
	"fmt"
	"io"
	"time"
)

const (
	heavyRule = "============================================"
	lightRule = "--------------------------------------------"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Field is one label/value line of a summary block.
type Field struct {
	Label string
	Value any
}

// PrintSummary writes a titled block of label/value lines.
func PrintSummary(w io.Writer, title string, fields ...Field) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, heavyRule)
	for _, f := range fields {
		fmt.Fprintf(w, "%-26s %v\n", f.Label+":", f.Value)
	}
	fmt.Fprintln(w, lightRule)
}
