// loader.go implements the configuration loading lifecycle.
//
// Loading sequence:
//  1. Enforce UTC process timezone to prevent scheduling drift.
//  2. Load a .env file via godotenv (non-fatal if absent; never overrides
//     existing environment variables).
//  3. Populate the Config struct from envconfig tags.
//  4. Validate the struct with go-playground/validator.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// LoadConfig loads and validates the guardian configuration from the
// environment. It is called exactly once, from main.
func LoadConfig() (*Config, error) {
	// Step 1: UTC everywhere. Due-time comparisons assume it.
	time.Local = time.UTC

	// Step 2: .env for local development.
	_ = godotenv.Load()

	// Step 3: envconfig population.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment config: %w", err)
	}

	// Step 4: struct validation.
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
