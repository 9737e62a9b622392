package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the build version from the embedded VERSION file.
func Get() string {
	return strings.TrimSpace(raw)
}
