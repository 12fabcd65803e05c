package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the numerical defaults used when quantizing a circuit. Every
// value can be overridden per instance after construction; these are the
// process-wide starting points.
type Config struct {
	// DefaultPeriodicCutoff is the charge-basis cutoff n assigned to a
	// periodic variable when the user has not set one (basis size 2n+1).
	DefaultPeriodicCutoff int
	// DefaultExtendedCutoff is the grid point count assigned to a
	// discretized extended variable when the user has not set one.
	DefaultExtendedCutoff int
	// DefaultPhiRangeMin/Max bound the discretized flux grid.
	DefaultPhiRangeMin float64
	DefaultPhiRangeMax float64
	// HarmonicTolerance decides when a residual beyond the second-order
	// expansion disqualifies a Hamiltonian from the purely-harmonic fast
	// path.
	HarmonicTolerance float64
	// HermiticityTolerance bounds |H - H^dag| entries on assembled
	// Hamiltonians.
	HermiticityTolerance float64
	LogLevel             string
	DevMode              bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DefaultPeriodicCutoff: getEnvAsInt("SCQ_DEFAULT_PERIODIC_CUTOFF", 5),
		DefaultExtendedCutoff: getEnvAsInt("SCQ_DEFAULT_EXTENDED_CUTOFF", 30),
		DefaultPhiRangeMin:    getEnvAsFloat("SCQ_DEFAULT_PHI_MIN", -6*math.Pi),
		DefaultPhiRangeMax:    getEnvAsFloat("SCQ_DEFAULT_PHI_MAX", 6*math.Pi),
		HarmonicTolerance:     getEnvAsFloat("SCQ_HARMONIC_TOLERANCE", 1e-11),
		HermiticityTolerance:  getEnvAsFloat("SCQ_HERMITICITY_TOLERANCE", 1e-9),
		LogLevel:              getEnv("SCQ_LOG_LEVEL", "info"),
		DevMode:               getEnvAsBool("SCQ_DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration without consulting the
// environment.
func Default() *Config {
	return &Config{
		DefaultPeriodicCutoff: 5,
		DefaultExtendedCutoff: 30,
		DefaultPhiRangeMin:    -6 * math.Pi,
		DefaultPhiRangeMax:    6 * math.Pi,
		HarmonicTolerance:     1e-11,
		HermiticityTolerance:  1e-9,
		LogLevel:              "info",
	}
}

// Validate checks that the configured defaults are usable
func (c *Config) Validate() error {
	if c.DefaultPeriodicCutoff < 1 {
		return fmt.Errorf("SCQ_DEFAULT_PERIODIC_CUTOFF must be >= 1, got %d", c.DefaultPeriodicCutoff)
	}
	if c.DefaultExtendedCutoff < 2 {
		return fmt.Errorf("SCQ_DEFAULT_EXTENDED_CUTOFF must be >= 2, got %d", c.DefaultExtendedCutoff)
	}
	if c.DefaultPhiRangeMin >= c.DefaultPhiRangeMax {
		return fmt.Errorf("phi range is empty: [%g, %g]", c.DefaultPhiRangeMin, c.DefaultPhiRangeMax)
	}
	if c.HarmonicTolerance <= 0 {
		return fmt.Errorf("SCQ_HARMONIC_TOLERANCE must be positive, got %g", c.HarmonicTolerance)
	}
	if c.HermiticityTolerance <= 0 {
		return fmt.Errorf("SCQ_HERMITICITY_TOLERANCE must be positive, got %g", c.HermiticityTolerance)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
