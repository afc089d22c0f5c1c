package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

const configVersion = "1"

// Config holds the server address and the API key used for every request.
type Config struct {
	Version string `yaml:"version"`
	// Server is the base URL of the catalog server, e.g. http://localhost:8194
	Server string `yaml:"server"`
	APIKey string `yaml:"api_key"`
}

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/datacatalog on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "datacatalog", DefaultConfigFile), nil
}

// LoadConfig reads and validates the configuration in file. An empty file
// name selects the default location.
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}
	c.Server = MorphServer(c.Server)
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WriteConfig writes the configuration to file, creating its directory.
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0o700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	// the file holds an API key
	err = os.WriteFile(file, yamlStr, 0o600)
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig checks for required fields and proper formatting
func (cfg *Config) ValidateConfig() error {
	if cfg.Server == "" {
		return errors.New("server is required")
	}
	if !strings.HasPrefix(cfg.Server, "http://") && !strings.HasPrefix(cfg.Server, "https://") {
		return errors.New("server must start with http:// or https://")
	}
	if cfg.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds http:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return server
	}

	server = strings.TrimRight(server, "/")

	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}

	return server
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return MorphServer(cfg.Server)
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the catalog-cli configuration",
	}

	var server, apiKey string
	create := &cobra.Command{
		Use:   "create",
		Short: "Write a configuration file",
		Long: `Write a configuration file with the server address and API key.

Example:
  catalog-cli config create --server localhost:8194 --api-key <key>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &Config{
				Version: configVersion,
				Server:  MorphServer(server),
				APIKey:  strings.TrimSpace(apiKey),
			}
			if err := cfg.ValidateConfig(); err != nil {
				return err
			}
			file, err := app.configPath()
			if err != nil {
				return err
			}
			if err := cfg.WriteConfig(file); err != nil {
				return err
			}
			return app.printKV(cmd, map[string]any{"config_file": file, "server": cfg.Server},
				fmt.Sprintf("Configuration written to %s", file))
		},
	}
	create.Flags().StringVar(&server, "server", "", "Catalog server address")
	create.Flags().StringVar(&apiKey, "api-key", "", "API key generated from the catalog")
	create.MarkFlagRequired("server")
	create.MarkFlagRequired("api-key")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := app.configPath()
			if err != nil {
				return err
			}
			cfg, err := LoadConfig(file)
			if err != nil {
				return err
			}
			return app.printKV(cmd, map[string]any{"config_file": file, "server": cfg.Server},
				fmt.Sprintf("Server: %s", cfg.Server))
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}
