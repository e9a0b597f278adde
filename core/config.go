package core

import (
	"fmt"
	"strings"
	"time"
)

// DefaultScalarAPIVersion is the integration-manager REST API version sent
// as the v query parameter on register and token-validation calls.
const DefaultScalarAPIVersion = "1.1"

type ScalarConfig struct {
	APIVersion string `koanf:"api_version" mapstructure:"api_version"`
}

type ProbeConfig struct {
	Timeout  time.Duration `koanf:"timeout" mapstructure:"timeout"`
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
}

type Config struct {
	ServiceName    string       `koanf:"service_name" mapstructure:"service_name"`
	HomeServerURL  string       `koanf:"home_server_url" mapstructure:"home_server_url"`
	IdentityServer string       `koanf:"identity_server" mapstructure:"identity_server"`
	Scalar         ScalarConfig `koanf:"scalar" mapstructure:"scalar"`
	Probe          ProbeConfig  `koanf:"probe" mapstructure:"probe"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "trust",
		Scalar: ScalarConfig{
			APIVersion: DefaultScalarAPIVersion,
		},
		Probe: ProbeConfig{
			Timeout:  10 * time.Second,
			Interval: 30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Probe.Timeout < 0 || c.Probe.Interval < 0 {
		return fmt.Errorf("core: probe timeout and interval must not be negative")
	}
	return nil
}
