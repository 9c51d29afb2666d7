package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForDirectory asks for a directory path on stdin, labelled with what
// the directory is for. Returns the current directory if the user enters
// nothing.
func PromptForDirectory(label string) string {
	return promptForDirectory(os.Stdin, os.Stdout, label)
}

func promptForDirectory(in io.Reader, out io.Writer, label string) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	fmt.Fprintf(out, "%s directory [%s]: ", label, cwd)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read input, using current directory")
		return cwd
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return cwd
	}

	return input
}
