package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///tmp/registry.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "CTR", cfg.AssignmentNumberPrefix)
	require.Equal(t, 5, cfg.AssignmentNumberWidth)
	require.Equal(t, "tenant", cfg.EligibleHolderKind)
	require.Equal(t, uint64(3), cfg.TxMaxRetries)
	require.Equal(t, 25*time.Millisecond, cfg.TxRetryBaseDelay)
	require.Equal(t, "/metrics", cfg.MetricsPath)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///tmp/registry.db")
	// Registered so the value loaded from the file is cleared after the test.
	t.Setenv("ASSIGNMENT_NUMBER_PREFIX", "")
	require.NoError(t, os.Unsetenv("ASSIGNMENT_NUMBER_PREFIX"))

	file := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(file, []byte("ASSIGNMENT_NUMBER_PREFIX=MV\n"), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "MV", cfg.AssignmentNumberPrefix)
}

func TestValidate(t *testing.T) {
	valid := Config{
		DatabaseURL:            "sqlite:///tmp/x.db",
		LogLevel:               "info",
		LogFormat:              "text",
		AssignmentNumberPrefix: "CTR",
		AssignmentNumberWidth:  5,
		AssignmentCounter:      "assignment",
		TxRetryBaseDelay:       time.Millisecond,
	}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.AssignmentNumberWidth = 0
	bad.LogLevel = "loud"
	bad.AssignmentNumberPrefix = " "
	err := bad.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "ASSIGNMENT_NUMBER_WIDTH")
	require.Contains(t, err.Error(), "LOG_LEVEL")
	require.Contains(t, err.Error(), "ASSIGNMENT_NUMBER_PREFIX")
}
