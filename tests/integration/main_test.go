//go:build integration

// Package integration provides integration tests against the live API
// and the built CLI binary. Run with:
//
//	go test -tags integration ./tests/integration
package integration

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// cliBinary holds the path to the pre-built CLI binary.
// It is set once in TestMain and used by all tests.
var cliBinary string

// TestMain builds the CLI binary once before running all tests,
// and cleans up afterward.
func TestMain(m *testing.M) {
	projectRoot := findProjectRoot()
	if projectRoot == "" {
		log.Fatal("Could not find project root (go.mod)")
	}

	tmpDir, err := os.MkdirTemp("", "anthropic-integration-test")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}

	cliBinary = filepath.Join(tmpDir, "anthropic-test")
	cmd := exec.Command("go", "build", "-o", cliBinary, "./cli/cmd/anthropic")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		log.Fatalf("Failed to build CLI: %v\n%s", err, output)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// findProjectRoot locates the project root by looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
