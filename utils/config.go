package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	Provider  string                    `json:"provider"` // key into Providers
	Providers map[string]ProviderConfig `json:"providers"`
	Files     FilesConfig               `json:"files"`
	Data      DataConfig                `json:"data"`
	Log       LogConfig                 `json:"log"`
	UI        UIConfig                  `json:"ui"`
}

// ProviderConfig represents model service configuration. The API key is
// kept in the settings database, not here.
type ProviderConfig struct {
	DisplayName string  `json:"display_name,omitempty"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     int     `json:"timeout,omitempty"` // connection timeout in seconds
}

// FilesConfig represents attachment limits
type FilesConfig struct {
	MaxFileSizeMB     int      `json:"max_file_size_mb"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DBPath string `json:"db_path"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `json:"level"` // "debug", "info", "warn", "error"
	Path   string `json:"path,omitempty"`
	Stderr bool   `json:"stderr"`
}

// UIConfig represents desktop window configuration
type UIConfig struct {
	Theme        string `json:"theme"` // "light" or "dark"
	FontSize     int    `json:"font_size"`
	WindowWidth  int    `json:"window_width"`
	WindowHeight int    `json:"window_height"`
}

// ActiveProvider returns the name and settings of the selected provider
func (c *Config) ActiveProvider() (string, ProviderConfig, error) {
	name := c.Provider
	if name == "" {
		name = "gemini"
	}
	pc, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("provider %q is not configured", name)
	}
	return name, pc, nil
}

// MaxFileSizeBytes returns the per-file limit in bytes
func (c *Config) MaxFileSizeBytes() int64 {
	if c.Files.MaxFileSizeMB <= 0 {
		return 0
	}
	return int64(c.Files.MaxFileSizeMB) * 1024 * 1024
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths
	if config.Data.DBPath != "" {
		config.Data.DBPath = expandPath(config.Data.DBPath)
	}
	if config.Log.Path != "" {
		config.Log.Path = expandPath(config.Log.Path)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(configPath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	// Expand ~
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	// Make absolute
	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to current directory
		return "./config/config.json"
	}

	return filepath.Join(configDir, "analyst-ai", "config.json")
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: "gemini",
		Providers: map[string]ProviderConfig{
			"gemini": {
				DisplayName: "Gemini",
				BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
				Model:       "gemini-2.5-flash",
				Temperature: 0.4,
			},
			"openai": {
				DisplayName: "OpenAI",
				BaseURL:     "https://api.openai.com/v1",
				Model:       "gpt-4-turbo-preview",
				Temperature: 0.4,
				MaxTokens:   4096,
			},
		},
		Files: FilesConfig{
			MaxFileSizeMB:     20,
			AllowedExtensions: []string{".pdf", ".docx", ".txt", ".html"},
		},
		Data: DataConfig{
			DBPath: "./data/analyst.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:        "light",
			FontSize:     14,
			WindowWidth:  1000,
			WindowHeight: 760,
		},
	}
}

// EnsureDefaultConfig creates a default config file if it doesn't exist
func EnsureDefaultConfig() (string, error) {
	configPath := GetConfigPath()

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := SaveConfig(configPath, DefaultConfig()); err != nil {
		return "", err
	}

	return configPath, nil
}
