// Package config provides configuration loading from YAML files, the system keychain,
// and environment variables. Environment variables take precedence for dev flexibility.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	// KeychainService is the keychain service name for wallpanel secrets.
	KeychainService = "wallpanel"

	// KeyAPIToken is the keychain account holding the messenger API token.
	KeyAPIToken = "api-token"
)

const (
	defaultListenAddr      = "127.0.0.1:8090"
	defaultPanelBrightness = 80
	defaultProcessorKey    = "windowProc"
	defaultProcessorName   = "Windowing Processor"
	defaultProcessorType   = "hdwp4k401c"
)

// Config holds the full application configuration, assembled from YAML + Keychain + env.
type Config struct {
	Processor ProcessorConfig `yaml:"processor"`
	Server    ServerConfig    `yaml:"server"`
	Panel     PanelConfig     `yaml:"panel"`
}

// ProcessorConfig describes the windowing processor managed by the daemon.
type ProcessorConfig struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// PropertiesFile points at a JSON properties payload, in the format
	// produced by host configuration tools. It replaces Properties when set.
	PropertiesFile string `yaml:"properties_file,omitempty"`

	// Properties is nil when the processor has no properties block at all.
	Properties *Properties `yaml:"properties,omitempty"`
}

// ServerConfig holds the status/control API configuration.
type ServerConfig struct {
	Listen   string `yaml:"listen"`
	APIToken string `yaml:"-"` // secret, not in YAML
}

// PanelConfig holds the Stream Deck control surface configuration.
type PanelConfig struct {
	Disabled   bool `yaml:"disabled"`
	Brightness byte `yaml:"brightness"`
	// Screen is the screen index whose layouts are shown on the panel keys.
	Screen uint `yaml:"screen"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "wallpanel")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	if p := os.Getenv("WALLPANEL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load assembles configuration from the default YAML file + Keychain + environment
// variables. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFile(DefaultConfigPath())
}

// LoadFile is like Load but reads the YAML file at path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Keychain may not be populated, or may not exist at all on headless hosts.
	if token, err := keyring.Get(KeychainService, KeyAPIToken); err == nil {
		cfg.Server.APIToken = token
	}

	applyEnv(cfg)

	if cfg.Processor.PropertiesFile != "" {
		props, err := ReadPropertiesFile(resolvePath(path, cfg.Processor.PropertiesFile))
		if err != nil {
			return nil, err
		}
		cfg.Processor.Properties = props
	}

	setDefaults(cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WALLPANEL_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("WALLPANEL_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("WALLPANEL_PROPERTIES_FILE"); v != "" {
		cfg.Processor.PropertiesFile = v
	}
	if v := os.Getenv("WALLPANEL_PANEL_SCREEN"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Panel.Screen = uint(n)
		}
	}
}

func setDefaults(cfg *Config) {
	cfg.Processor.Key = cmp.Or(cfg.Processor.Key, defaultProcessorKey)
	cfg.Processor.Name = cmp.Or(cfg.Processor.Name, defaultProcessorName)
	cfg.Processor.Type = cmp.Or(cfg.Processor.Type, defaultProcessorType)
	cfg.Server.Listen = cmp.Or(cfg.Server.Listen, defaultListenAddr)
	cfg.Panel.Brightness = cmp.Or(cfg.Panel.Brightness, defaultPanelBrightness)
	cfg.Panel.Screen = cmp.Or(cfg.Panel.Screen, 1)
}

// resolvePath resolves p relative to the directory of the config file.
func resolvePath(configPath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// WriteConfigFile writes the non-secret portion of config to the YAML file.
func WriteConfigFile(cfg *Config) error {
	dir := filepath.Dir(DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(DefaultConfigPath(), data, 0o644)
}

// SetKeychainSecret stores a secret in the system keychain.
func SetKeychainSecret(account, value string) error {
	// Delete first to avoid "already exists" errors on update
	_ = keyring.Delete(KeychainService, account)
	return keyring.Set(KeychainService, account, value)
}

// GetKeychainSecret retrieves a secret from the system keychain.
func GetKeychainSecret(account string) (string, error) {
	return keyring.Get(KeychainService, account)
}
