package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// OutputConfig defines the instrument MIDI output
type OutputConfig struct {
	PortName    string `json:"portName,omitempty"`
	AutoConnect bool   `json:"autoConnect,omitempty"`
}

// ClockConfig stores the last clock settings
type ClockConfig struct {
	Tempo float64 `json:"tempo,omitempty"`
	PPQN  int     `json:"ppqn,omitempty"`
	Mode  string  `json:"mode,omitempty"` // auto, manual, always
}

// UIConfig stores UI preferences
type UIConfig struct {
	LastBank      string `json:"lastBank,omitempty"`
	VelocityCurve string `json:"velocityCurve,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Output OutputConfig `json:"output,omitempty"`
	Clock  ClockConfig  `json:"clock,omitempty"`
	UI     UIConfig     `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			AutoConnect: true,
		},
		Clock: ClockConfig{
			Tempo: 120,
			PPQN:  24,
			Mode:  "auto",
		},
		UI: UIConfig{
			VelocityCurve: "linear",
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-pulse"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
