package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Search       SearchConfig       `mapstructure:"search"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SearchConfig contains search API configuration
type SearchConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Media     string        `mapstructure:"media"`
	Entity    string        `mapstructure:"entity"`
	Limit     int           `mapstructure:"limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second
	Burst     int           `mapstructure:"burst"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir          string        `mapstructure:"base_dir"`
	LibraryDir       string        `mapstructure:"library_dir"`  // local store for completed previews
	IncomingDir      string        `mapstructure:"incoming_dir"` // partial and temporary files
	LogsDir          string        `mapstructure:"logs_dir"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	ProgressInterval int64         `mapstructure:"progress_interval"` // bytes between progress reports
}

// HistoryConfig contains download history configuration
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DatabasePath  string `mapstructure:"database_path"`
	BufferSize    int    `mapstructure:"buffer_size"`
	RetentionDays int    `mapstructure:"retention_days"` // 0 keeps everything
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig contains Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Search: SearchConfig{
			BaseURL:   "https://itunes.apple.com/search",
			Media:     "music",
			Entity:    "song",
			Limit:     50,
			Timeout:   15 * time.Second,
			RateLimit: 2,
			Burst:     4,
		},
		Download: DownloadConfig{
			BaseDir:          "$HOME/Music/halftunes",
			LibraryDir:       "$HOME/Music/halftunes/library",
			IncomingDir:      "$HOME/Music/halftunes/incoming",
			LogsDir:          "$HOME/Music/halftunes/logs",
			RequestTimeout:   0,
			ProgressInterval: 32 * 1024,
		},
		History: HistoryConfig{
			Enabled:       true,
			DatabasePath:  "$HOME/Music/halftunes/history.db",
			BufferSize:    64,
			RetentionDays: 90,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
