package e2e_test

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var (
	binaryPath     string
	binaryBuildErr error
	binaryOnce     sync.Once
	sharedTempDir  string
)

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	// Create shared temp directory for the binary
	var err error
	sharedTempDir, err = os.MkdirTemp("", "teststand-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	// Run tests
	code := m.Run()

	if testCleanup != nil {
		testCleanup()
	}
	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// buildBinary compiles the teststand binary once per test run.
// Returns the path to the compiled binary.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		binaryPath = filepath.Join(sharedTempDir, "teststand")

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/teststand")
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			binaryBuildErr = fmt.Errorf("build binary: %w\nOutput: %s", err, output)
			return
		}
	})

	if binaryBuildErr != nil {
		t.Fatalf("failed to build binary: %v", binaryBuildErr)
	}

	return binaryPath
}

// getProjectRoot returns the root directory of the module.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	// Find the go.mod file to determine project root
	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// absPath resolves a path relative to the e2e directory.
func absPath(t *testing.T, rel string) string {
	t.Helper()
	p, err := filepath.Abs(rel)
	require.NoError(t, err)
	return p
}

// writeConfigFile writes a teststand config with one databases.<name>.url entry per url.
func writeConfigFile(t *testing.T, urls map[string]string) string {
	t.Helper()

	databases := make(map[string]any, len(urls))
	for name, url := range urls {
		databases[name] = map[string]any{"url": url}
	}

	content, err := yaml.Marshal(map[string]any{
		"workers":   2,
		"log":       map[string]any{"level": "error"},
		"databases": databases,
	})
	require.NoError(t, err, "marshal config")

	configPath := filepath.Join(t.TempDir(), "teststand.yaml")
	err = os.WriteFile(configPath, content, 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// runProvision runs the provision command and returns its stdout and stderr.
func runProvision(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	binary := buildBinary(t)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(binary, append([]string{"provision"}, args...)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

type provisionOutput struct {
	Databases map[string]struct {
		URL string `yaml:"url"`
	} `yaml:"databases"`
}

func parseProvisionOutput(t *testing.T, stdout string) provisionOutput {
	t.Helper()
	var out provisionOutput
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &out), "parse output: %s", stdout)
	return out
}
