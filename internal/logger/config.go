package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	ConsoleStream  string `yaml:"console_stream"` // "stderr" or "stdout"
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// fileSection mirrors Config with pointer flags so keys missing from the
// YAML keep their defaults.
type fileSection struct {
	Level          string `yaml:"level"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	ConsoleStream  string `yaml:"console_stream"`
	FileEnabled    *bool  `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// DefaultConfig returns console-only text logging at INFO on stderr, leaving
// stdout free for rendered maps.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		ConsoleStream:  "stderr",
		FileEnabled:    false,
		FilePath:       "logs/steamtunnels.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig reads the logging section of the steamtunnels YAML file
// and applies environment variable overrides
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	// Silently use defaults if file doesn't exist or can't be parsed
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var doc struct {
				Logging fileSection `yaml:"logging"`
			}
			if err := yaml.Unmarshal(data, &doc); err == nil {
				config.merge(doc.Logging)
			}
		}
	}

	// Apply environment variable overrides
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Level = logLevel
	}

	if consoleFormat := os.Getenv("LOG_CONSOLE_FORMAT"); consoleFormat != "" {
		config.ConsoleFormat = consoleFormat
	}

	if consoleEnabled := os.Getenv("LOG_CONSOLE_ENABLED"); consoleEnabled != "" {
		if enabled, err := strconv.ParseBool(consoleEnabled); err == nil {
			config.ConsoleEnabled = enabled
		}
	}

	if fileEnabled := os.Getenv("LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			config.FileEnabled = enabled
		}
	}

	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		config.FilePath = filePath
	}

	return config, nil
}

func (c *Config) merge(s fileSection) {
	if s.Level != "" {
		c.Level = s.Level
	}
	if s.ConsoleEnabled != nil {
		c.ConsoleEnabled = *s.ConsoleEnabled
	}
	if s.ConsoleFormat != "" {
		c.ConsoleFormat = s.ConsoleFormat
	}
	if s.ConsoleStream != "" {
		c.ConsoleStream = s.ConsoleStream
	}
	if s.FileEnabled != nil {
		c.FileEnabled = *s.FileEnabled
	}
	if s.FilePath != "" {
		c.FilePath = s.FilePath
	}
	if s.FileFormat != "" {
		c.FileFormat = s.FileFormat
	}
	if s.FileMaxSizeMB > 0 {
		c.FileMaxSizeMB = s.FileMaxSizeMB
	}
	if s.FileMaxBackups > 0 {
		c.FileMaxBackups = s.FileMaxBackups
	}
	if s.FileMaxAgeDays > 0 {
		c.FileMaxAgeDays = s.FileMaxAgeDays
	}
}
