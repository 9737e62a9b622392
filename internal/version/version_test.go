package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	v := Get()
	if v == "" {
		t.Fatal("expected non-empty version")
	}
	if strings.TrimSpace(v) != v {
		t.Errorf("version not trimmed: %q", v)
	}
}
