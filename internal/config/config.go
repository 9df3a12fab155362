// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"

	"ordersync/internal/core"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig         `yaml:"app"`
	Backend     BackendConfig     `yaml:"backend"`
	Sync        SyncConfig        `yaml:"sync"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	System      SystemConfig      `yaml:"system"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	RestaurantName string `yaml:"restaurant_name"`
}

// BackendConfig points at the remote order service
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       Secret `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SyncConfig controls the polling loop and notify-state persistence
type SyncConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	NotifyStatePath     string `yaml:"notify_state_path"` // empty = in-memory only
}

// PipelineConfig is the restaurant-configured order status pipeline
type PipelineConfig struct {
	Statuses        []core.StatusDef `yaml:"statuses"`
	CompletedStatus string           `yaml:"completed_status"`
	RefusedStatus   string           `yaml:"refused_status"`
}

// AlertsConfig configures staff notice channels
type AlertsConfig struct {
	Console          bool   `yaml:"console"`
	TelegramBotToken Secret `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
	MetricsPort   int  `yaml:"metrics_port"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	CallbackPoolSize   int `yaml:"callback_pool_size"`
	CallbackPoolBuffer int `yaml:"callback_pool_buffer"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.Expand(string(data), os.Getenv)

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 15
	}
	if c.Sync.PollIntervalSeconds == 0 {
		c.Sync.PollIntervalSeconds = 10
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.Telemetry.MetricsPort == 0 {
		c.Telemetry.MetricsPort = 9090
	}
	if c.Concurrency.CallbackPoolSize == 0 {
		c.Concurrency.CallbackPoolSize = 4
	}
	if c.Concurrency.CallbackPoolBuffer == 0 {
		c.Concurrency.CallbackPoolBuffer = 64
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateBackendConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSyncConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validatePipelineConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateTelemetryConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateBackendConfig() error {
	if c.Backend.BaseURL == "" {
		return ValidationError{
			Field:   "backend.base_url",
			Message: "backend base URL is required",
		}
	}
	if c.Backend.TimeoutSeconds < 1 || c.Backend.TimeoutSeconds > 300 {
		return ValidationError{
			Field:   "backend.timeout_seconds",
			Value:   c.Backend.TimeoutSeconds,
			Message: "must be between 1 and 300",
		}
	}
	return nil
}

func (c *Config) validateSyncConfig() error {
	if c.Sync.PollIntervalSeconds < 1 || c.Sync.PollIntervalSeconds > 3600 {
		return ValidationError{
			Field:   "sync.poll_interval_seconds",
			Value:   c.Sync.PollIntervalSeconds,
			Message: "must be between 1 and 3600",
		}
	}
	return nil
}

func (c *Config) validatePipelineConfig() error {
	if len(c.Pipeline.Statuses) == 0 {
		return ValidationError{
			Field:   "pipeline.statuses",
			Message: "at least one status must be configured",
		}
	}

	seen := make(map[string]bool, len(c.Pipeline.Statuses))
	for _, s := range c.Pipeline.Statuses {
		if s.ID == "" {
			return ValidationError{
				Field:   "pipeline.statuses",
				Message: "status id must not be empty",
			}
		}
		if seen[s.ID] {
			return ValidationError{
				Field:   "pipeline.statuses",
				Value:   s.ID,
				Message: "duplicate status id",
			}
		}
		seen[s.ID] = true
	}

	if c.Pipeline.CompletedStatus != "" && !seen[c.Pipeline.CompletedStatus] {
		return ValidationError{
			Field:   "pipeline.completed_status",
			Value:   c.Pipeline.CompletedStatus,
			Message: "not present in pipeline.statuses",
		}
	}
	if c.Pipeline.RefusedStatus != "" && !seen[c.Pipeline.RefusedStatus] {
		return ValidationError{
			Field:   "pipeline.refused_status",
			Value:   c.Pipeline.RefusedStatus,
			Message: "not present in pipeline.statuses",
		}
	}

	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validateTelemetryConfig() error {
	if c.Telemetry.MetricsPort < 1 || c.Telemetry.MetricsPort > 65535 {
		return ValidationError{
			Field:   "telemetry.metrics_port",
			Value:   c.Telemetry.MetricsPort,
			Message: "must be a valid port",
		}
	}
	return nil
}

// CorePipeline converts the configured pipeline into the engine's data shape.
func (c *Config) CorePipeline() core.Pipeline {
	return core.Pipeline{
		Statuses:    c.Pipeline.Statuses,
		CompletedID: c.Pipeline.CompletedStatus,
		RefusedID:   c.Pipeline.RefusedStatus,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
