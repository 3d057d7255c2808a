package support

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStdout   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// Server under test
	HTTPServer *testHTTPServer

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    http.Header
}

// NewTestContext creates a new test context rooted at the module directory.
func NewTestContext() (*TestContext, error) {
	workingDir, err := testutil.GetProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "zbarscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &TestContext{
		WorkingDir: workingDir,
		TempDir:    tempDir,
		EnvVars:    []string{},
	}, nil
}

// Cleanup stops the server and removes every temporary file.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if testCtx.HTTPServer != nil {
		if err := testCtx.HTTPServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
		}
		testCtx.HTTPServer = nil
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TempPath resolves name inside the scenario's temp directory.
func (testCtx *TestContext) TempPath(name string) string {
	return filepath.Join(testCtx.TempDir, filepath.FromSlash(name))
}

// substituteCommandVariables expands {tmp} to the scenario's temp directory.
func (testCtx *TestContext) substituteCommandVariables(s string) string {
	return strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
}
