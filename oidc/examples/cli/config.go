// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultTimeout = 2 * time.Minute

// cliConfig is the YAML configuration of the example.
type cliConfig struct {
	Issuer       string        `yaml:"issuer" validate:"required,url"`
	ClientID     string        `yaml:"client_id" validate:"required"`
	Port         int           `yaml:"port" validate:"required,min=1,max=65535"`
	Scopes       []string      `yaml:"scopes"`
	ResponseType string        `yaml:"response_type"`
	StoragePath  string        `yaml:"storage_path" validate:"required"`
	ProviderCA   string        `yaml:"provider_ca_file" validate:"omitempty,file"`
	Discover     bool          `yaml:"discover"`
	Timeout      time.Duration `yaml:"timeout" validate:"gte=0"`
	LogLevel     string        `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
}

func loadConfig(path string) (*cliConfig, error) {
	const op = "loadConfig"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var cfg cliConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: unable to parse %s: %w", op, path, err)
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%s: invalid configuration %s: %w", op, path, err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}

// origin of the loopback listener serving the redirect URL.
func (c *cliConfig) origin() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

func (c *cliConfig) redirectURL() string {
	return c.origin() + "/callback"
}

// providerCA returns the contents of the configured CA file, if any.
func (c *cliConfig) providerCA() (string, error) {
	const op = "cliConfig.providerCA"
	if c.ProviderCA == "" {
		return "", nil
	}
	pem, err := os.ReadFile(c.ProviderCA)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(pem), nil
}
