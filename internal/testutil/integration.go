// Package testutil gates and bootstraps integration tests: they only run
// when INTEGRATION_TEST=1, and pull their API keys from the nearest
// .env.test.local rather than requiring the environment to be prepared
// by hand.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
)

const envFileName = ".env.test.local"

// SkipIfNotIntegration skips the test unless INTEGRATION_TEST=1.
func SkipIfNotIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "1" {
		t.Skip("skipping integration test (set INTEGRATION_TEST=1 to run)")
	}
}

// LoadTestEnv loads the first .env.test.local found walking up from the
// test's working directory (falling back to $HOME). Finding none is not
// an error — the variables may already be exported.
func LoadTestEnv(t *testing.T) {
	t.Helper()

	candidates := []string{envFileName}
	for up, prefix := 0, ".."; up < 4; up++ {
		candidates = append(candidates, filepath.Join(prefix, envFileName))
		prefix = filepath.Join(prefix, "..")
	}
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, envFileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			t.Logf("failed to load %s: %v", path, err)
			continue
		}
		t.Logf("loaded environment from %s", path)
		return
	}
	t.Logf("no %s found, using existing environment", envFileName)
}

// RequireEnvVar returns the value of key, skipping the test when unset.
func RequireEnvVar(t *testing.T, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("skipping: %s not set", key)
	}
	return value
}
