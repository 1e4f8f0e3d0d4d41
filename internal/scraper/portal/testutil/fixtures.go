package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// LoadFixture reads an HTML fixture file for the given portal
func LoadFixture(t *testing.T, portalCode, name string) string {
	t.Helper()

	// Get path relative to this file
	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filepath.Dir(filename)) // up to portal/

	path := filepath.Join(baseDir, portalCode, "testdata", "fixtures", name+".html")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to load fixture %s/%s: %v", portalCode, name, err)
	}

	return string(data)
}
