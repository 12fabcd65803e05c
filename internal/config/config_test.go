package config

import (
	"math"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DefaultPeriodicCutoff != 5 {
		t.Errorf("DefaultPeriodicCutoff = %d, want 5", cfg.DefaultPeriodicCutoff)
	}
	if cfg.DefaultExtendedCutoff != 30 {
		t.Errorf("DefaultExtendedCutoff = %d, want 30", cfg.DefaultExtendedCutoff)
	}
	if cfg.DefaultPhiRangeMin != -6*math.Pi || cfg.DefaultPhiRangeMax != 6*math.Pi {
		t.Errorf("phi range = [%g, %g], want ±6π", cfg.DefaultPhiRangeMin, cfg.DefaultPhiRangeMax)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("built-in defaults must validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCQ_DEFAULT_PERIODIC_CUTOFF", "9")
	t.Setenv("SCQ_HARMONIC_TOLERANCE", "1e-9")
	t.Setenv("SCQ_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultPeriodicCutoff != 9 {
		t.Errorf("DefaultPeriodicCutoff = %d, want 9", cfg.DefaultPeriodicCutoff)
	}
	if cfg.HarmonicTolerance != 1e-9 {
		t.Errorf("HarmonicTolerance = %g, want 1e-9", cfg.HarmonicTolerance)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero periodic cutoff", mutate: func(c *Config) { c.DefaultPeriodicCutoff = 0 }},
		{name: "one-point grid", mutate: func(c *Config) { c.DefaultExtendedCutoff = 1 }},
		{name: "empty phi range", mutate: func(c *Config) { c.DefaultPhiRangeMin = c.DefaultPhiRangeMax }},
		{name: "negative harmonic tolerance", mutate: func(c *Config) { c.HarmonicTolerance = -1 }},
		{name: "zero hermiticity tolerance", mutate: func(c *Config) { c.HermiticityTolerance = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
