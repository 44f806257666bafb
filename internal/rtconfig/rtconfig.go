// Package rtconfig loads the runtime's environment-driven tunables,
// following the .env + strconv.Atoi idiom of hydraide-hydraide's
// app/server/main.go init().
package rtconfig

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the environment-driven knobs spec §4.3/§9 names directly:
// the DPOR exploration caps and the random-strategy seed/iteration count.
type Config struct {
	MaxSchedules   int
	MaxDepth       int
	TestSeed       int64
	TestIterations int
	LogLevel       string
}

const (
	defaultMaxSchedules   = 10_000
	defaultMaxDepth       = 100_000
	defaultTestIterations = 1
	defaultLogLevel       = "info"
)

// Load reads a .env file if present (missing file is not an error, matching
// godotenv.Load()'s conventional ignored return in the teacher's main.go)
// and then layers environment variables over the defaults above.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MaxSchedules:   defaultMaxSchedules,
		MaxDepth:       defaultMaxDepth,
		TestIterations: defaultTestIterations,
		LogLevel:       defaultLogLevel,
	}

	var err error
	if v := os.Getenv("PLUTO_MAX_SCHEDULES"); v != "" {
		if cfg.MaxSchedules, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("rtconfig: PLUTO_MAX_SCHEDULES must be a number: %w", err)
		}
	}
	if v := os.Getenv("PLUTO_MAX_DEPTH"); v != "" {
		if cfg.MaxDepth, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("rtconfig: PLUTO_MAX_DEPTH must be a number: %w", err)
		}
	}
	if v := os.Getenv("PLUTO_TEST_SEED"); v != "" {
		if cfg.TestSeed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return cfg, fmt.Errorf("rtconfig: PLUTO_TEST_SEED must be a number: %w", err)
		}
	}
	if v := os.Getenv("PLUTO_TEST_ITERATIONS"); v != "" {
		if cfg.TestIterations, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("rtconfig: PLUTO_TEST_ITERATIONS must be a number: %w", err)
		}
	}
	if v := os.Getenv("PLUTO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}
