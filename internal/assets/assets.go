// Package assets provides embedded text templates for the application.
//
// The usage-release block printed by the selection workflow is stored as a
// text file under templates/ and embedded at compile time. A template file
// on disk can replace it at run time.
package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/usage-release.txt
var usageReleaseTemplate string

// defaultReleaseTmpl is parsed at startup; template.Must panics on a malformed
// embedded template rather than at call time.
var defaultReleaseTmpl = template.Must(template.New("usage-release").Parse(usageReleaseTemplate))

// ReleaseData holds the dynamic data injected into the usage-release template.
type ReleaseData struct {
	// Parties names who the release is granted to.
	Parties string

	// Date is the day the release was generated, YYYY-MM-DD.
	Date string

	// Files are the base names of the released originals, each listed once.
	Files []string
}

// FileList returns the file names comma-separated.
func (d ReleaseData) FileList() string {
	return strings.Join(d.Files, ", ")
}

// LoadReleaseTemplate returns the template at path, or the embedded default
// when path is empty.
func LoadReleaseTemplate(path string) (*template.Template, error) {
	if path == "" {
		return defaultReleaseTmpl, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read release template: %w", err)
	}
	tmpl, err := template.New("usage-release").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse release template %s: %w", path, err)
	}
	return tmpl, nil
}

// RenderRelease executes tmpl with data.
func RenderRelease(tmpl *template.Template, data ReleaseData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render release: %w", err)
	}
	return buf.String(), nil
}
