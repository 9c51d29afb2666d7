package filehandler

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/fpang/photo-batch/internal/testutil"
)

func buildWalkTree(t *testing.T) (string, []string) {
	t.Helper()
	root := t.TempDir()

	testutil.WriteExifJPEG(t, filepath.Join(root, "cam1", "a.jpg"), 16, 12, "2022:07:10 09:00:00")
	testutil.WritePNG(t, filepath.Join(root, "cam2", "deep", "b.dat"), 10, 10)
	testutil.WriteFile(t, filepath.Join(root, "notes.jpg"), []byte("definitely not a photo"))
	testutil.WriteFile(t, filepath.Join(root, "empty.png"), nil)

	want := []string{
		filepath.Join(root, "cam1", "a.jpg"),
		filepath.Join(root, "cam2", "deep", "b.dat"),
	}
	return root, want
}

func TestWalkImages_ContentNotExtension(t *testing.T) {
	root, want := buildWalkTree(t)

	got := CollectImages(root)
	sort.Strings(got)
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("CollectImages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CollectImages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWalkImages_Restartable(t *testing.T) {
	root, want := buildWalkTree(t)
	seq := WalkImages(root)

	for pass := 1; pass <= 2; pass++ {
		n := 0
		for range seq {
			n++
		}
		if n != len(want) {
			t.Errorf("pass %d yielded %d paths, want %d", pass, n, len(want))
		}
	}
}

func TestWalkImages_EarlyStop(t *testing.T) {
	root, _ := buildWalkTree(t)

	n := 0
	for range WalkImages(root) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("consumer saw %d paths after break, want 1", n)
	}
}

func TestWalkImages_MissingRoot(t *testing.T) {
	got := CollectImages(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(got) != 0 {
		t.Errorf("CollectImages(missing) = %v, want empty", got)
	}
}

func TestWalkImages_UnreadableFileSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root, want := buildWalkTree(t)
	locked := filepath.Join(root, "locked.jpg")
	testutil.WriteExifJPEG(t, locked, 8, 8, "")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0o644)

	if got := CollectImages(root); len(got) != len(want) {
		t.Errorf("CollectImages() = %v, want %d paths", got, len(want))
	}
}
