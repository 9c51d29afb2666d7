package jobs

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID("process-")
	b := GenerateID("process-")

	if a == b {
		t.Errorf("GenerateID returned the same ID twice: %s", a)
	}
	if !strings.HasPrefix(a, "process-") {
		t.Errorf("GenerateID() = %q, want prefix %q", a, "process-")
	}
	if _, err := uuid.Parse(strings.TrimPrefix(a, "process-")); err != nil {
		t.Errorf("suffix of %q is not a UUID: %v", a, err)
	}
}
