package selection

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseTargets(t *testing.T) {
	input := "IMG_0001\n  IMG_0002  \n\n# shortlist from Sunday\nIMG_0001\r\nIMG_0003\n"

	got, err := ParseTargets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTargets failed: %v", err)
	}
	want := []string{"IMG_0001", "IMG_0002", "IMG_0003"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stem[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.txt")
	if err := os.WriteFile(path, []byte("A\nB\n"), 0o644); err != nil {
		t.Fatalf("failed to write targets: %v", err)
	}

	got, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("LoadTargets failed: %v", err)
	}
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("got %v, want [A B]", got)
	}

	if _, err := LoadTargets(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
