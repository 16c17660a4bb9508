package app

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/halftunes/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Registering every key lets HALFTUNES_* variables override values absent from the file
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.halftunes")
		v.AddConfigPath("/etc/halftunes")
	}

	v.SetEnvPrefix("HALFTUNES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// DefaultConfigPath returns the per-user configuration file location
func DefaultConfigPath() string {
	return expandPath("~/.halftunes/config.yaml")
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.LibraryDir = expandPath(config.Download.LibraryDir)
	config.Download.IncomingDir = expandPath(config.Download.IncomingDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)

	// Directories left empty live under the base directory
	if config.Download.LibraryDir == "" {
		config.Download.LibraryDir = filepath.Join(config.Download.BaseDir, "library")
	}
	if config.Download.IncomingDir == "" {
		config.Download.IncomingDir = filepath.Join(config.Download.BaseDir, "incoming")
	}
	if config.Download.LogsDir == "" {
		config.Download.LogsDir = filepath.Join(config.Download.BaseDir, "logs")
	}

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME is resolved through os.UserHomeDir so it works where HOME is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.ProgressInterval < 0 {
		return fmt.Errorf("progress interval cannot be negative")
	}

	u, err := url.Parse(config.Search.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid search base url: %q", config.Search.BaseURL)
	}

	if config.Search.Limit < 0 {
		return fmt.Errorf("search limit cannot be negative")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Metrics.Enabled && !strings.HasPrefix(config.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with '/': %q", config.Metrics.Path)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// configValues flattens config into viper keys
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": config.Server.Host,
		"server.port": config.Server.Port,

		"search.base_url":   config.Search.BaseURL,
		"search.media":      config.Search.Media,
		"search.entity":     config.Search.Entity,
		"search.limit":      config.Search.Limit,
		"search.timeout":    config.Search.Timeout.String(),
		"search.rate_limit": config.Search.RateLimit,
		"search.burst":      config.Search.Burst,

		"download.base_dir":          config.Download.BaseDir,
		"download.library_dir":       config.Download.LibraryDir,
		"download.incoming_dir":      config.Download.IncomingDir,
		"download.logs_dir":          config.Download.LogsDir,
		"download.request_timeout":   config.Download.RequestTimeout.String(),
		"download.progress_interval": config.Download.ProgressInterval,

		"history.enabled":        config.History.Enabled,
		"history.database_path":  config.History.DatabasePath,
		"history.buffer_size":    config.History.BufferSize,
		"history.retention_days": config.History.RetentionDays,

		"notification.enabled": config.Notification.Enabled,
		"notification.method":  config.Notification.Method,

		"logging.level":        config.Logging.Level,
		"logging.format":       config.Logging.Format,
		"logging.output_path":  config.Logging.OutputPath,
		"logging.max_size_mb":  config.Logging.MaxSizeMB,
		"logging.max_backups":  config.Logging.MaxBackups,
		"logging.max_age_days": config.Logging.MaxAgeDays,
		"logging.compress":     config.Logging.Compress,

		"metrics.enabled": config.Metrics.Enabled,
		"metrics.path":    config.Metrics.Path,
	}
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
