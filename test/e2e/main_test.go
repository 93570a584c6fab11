package e2e

import (
	"os"
	"os/exec"
	"testing"
)

var (
	ludexBin string
	mongoURI string
)

func TestMain(m *testing.M) {
	ludexBin = envOrLookPath("LUDEX_BIN", "ludex")
	mongoURI = os.Getenv("LUDEX_E2E_MONGO_URI")
	os.Exit(m.Run())
}

func envOrLookPath(envVar, name string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return ""
}

// requireStack skips the test unless both the ludex binary and a Mongo
// deployment are available.
func requireStack(t *testing.T) {
	t.Helper()
	if ludexBin == "" {
		t.Skip("ludex binary not available (set LUDEX_BIN or add to PATH)")
	}
	if mongoURI == "" {
		t.Skip("Mongo not available (set LUDEX_E2E_MONGO_URI)")
	}
}
