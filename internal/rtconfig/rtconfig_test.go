package rtconfig

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PLUTO_MAX_SCHEDULES", "PLUTO_MAX_DEPTH", "PLUTO_TEST_SEED", "PLUTO_TEST_ITERATIONS", "PLUTO_LOG_LEVEL"} {
		require.NoError(t, os.Unsetenv(k))
	}
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, defaultMaxSchedules, cfg.MaxSchedules)
	require.Equal(t, defaultMaxDepth, cfg.MaxDepth)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("PLUTO_MAX_SCHEDULES", "42")
	t.Setenv("PLUTO_TEST_SEED", "99")
	t.Setenv("PLUTO_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 42, cfg.MaxSchedules)
	require.Equal(t, int64(99), cfg.TestSeed)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsNonNumeric(t *testing.T) {
	t.Setenv("PLUTO_MAX_DEPTH", "not-a-number")
	_, err := Load()
	require.Error(t, err)
}
