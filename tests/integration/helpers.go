//go:build integration

package integration

import (
	"bytes"
	"os"
	"os/exec"
	"testing"
)

// isCI returns true if running in a CI environment.
func isCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_URL"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// skipIfNoAPIKey handles a missing ANTHROPIC_API_KEY. In CI it fails
// loudly unless ANTHROPIC_SKIP_INTEGRATION is set; locally it skips.
func skipIfNoAPIKey(t *testing.T) {
	t.Helper()
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return
	}
	if isCI() && os.Getenv("ANTHROPIC_SKIP_INTEGRATION") == "" {
		t.Fatal("ANTHROPIC_API_KEY not set (CI environment detected; set ANTHROPIC_SKIP_INTEGRATION=1 to skip)")
	}
	t.Skip("ANTHROPIC_API_KEY not set")
}

// cliResult captures the outcome of a CLI invocation.
type cliResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runCLI executes the pre-built CLI binary with the given arguments.
// The config flag points into a temp dir so the user's real config is
// never touched; credentials flow through the environment.
func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()

	cfgPath := t.TempDir() + "/config.yaml"
	args = append([]string{"--config", cfgPath}, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(cliBinary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = os.Environ()

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	return cliResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}
}
