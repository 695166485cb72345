// Package config defines the runtime configuration shared by all commands.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config carries flag and environment settings into the processing pipeline.
type Config struct {
	// Key material paths
	Keystore   string `mapstructure:"keys"`
	PrivateKey string `mapstructure:"private-key"`
	FastNonce  string `mapstructure:"fast-nonce"`

	// Common flags
	Parallel int `validate:"min=1"`
	Quiet    bool
	Verbose  bool
	Stats    bool
	Delete   bool

	// File selection patterns
	Include []string
	Exclude []string

	// Positional arguments
	Files []string `validate:"min=1"`
}

// Validate validates the configuration against the struct tags.
func (c Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	return nil
}
