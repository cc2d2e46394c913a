package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort      string        `mapstructure:"server_port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// OpenTelemetry settings
	OTLPEndpoint      string `mapstructure:"otel_exporter_otlp_endpoint" validate:"required_if=TelemetryExporter otlp"`
	ServiceName       string `mapstructure:"otel_service_name" validate:"required"`
	Environment       string `mapstructure:"environment" validate:"required"`
	TelemetryExporter string `mapstructure:"telemetry_exporter" validate:"oneof=otlp none"`
}

var defaults = map[string]any{
	"server_port":                 "8080",
	"shutdown_timeout":            30 * time.Second,
	"otel_exporter_otlp_endpoint": "localhost:4317",
	"otel_service_name":           "task-store",
	"environment":                 "development",
	"telemetry_exporter":          "otlp",
}

// Load returns configuration from environment variables with sensible defaults.
// Each key is read from the upper-cased variable of the same name, for
// example SERVER_PORT or OTEL_EXPORTER_OTLP_ENDPOINT.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ExportTelemetry reports whether OTLP exporters should be created.
func (c *Config) ExportTelemetry() bool {
	return c.TelemetryExporter == "otlp"
}
