package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	MetadataStorePostgres = "postgresql"
	MetadataStoreMemory   = "memory"

	ObjectStoreGCS   = "gcs"
	ObjectStoreLocal = "local"

	devSessionSecret = "dev-session-secret"
	devSigningKey    = "dev-signing-key"
)

type ConfigParam struct {
	ServerPort         string   `toml:"server_port"`
	HandleCORS         bool     `toml:"handle_cors"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	LogLevel           string   `toml:"log_level"`

	SessionSecret   string `toml:"session_secret"`
	SessionValidity string `toml:"session_validity"`

	DownloadValidityHours   int `toml:"download_validity_hours"`
	DirectLinkValidityHours int `toml:"direct_link_validity_hours"`
	MaxLineageDepth         int `toml:"max_lineage_depth"`
	MaxUploadSizeMB         int `toml:"max_upload_size_mb"`

	MetadataStore  MetadataStoreConfig  `toml:"metadata_store"`
	ObjectStore    ObjectStoreConfig    `toml:"object_store"`
	BootstrapAdmin BootstrapAdminConfig `toml:"bootstrap_admin"`
}

type MetadataStoreConfig struct {
	Type             string `toml:"type"`
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	User             string `toml:"user"`
	Password         string `toml:"password"`
	DBName           string `toml:"dbname"`
	SSLMode          string `toml:"sslmode"`
	StatementTimeout string `toml:"statement_timeout"`
	MaxOpenConns     int    `toml:"max_open_conns"`
}

// DSN returns the connection string for the pgx driver.
func (m MetadataStoreConfig) DSN() string {
	sslmode := m.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := m.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		m.Host, port, m.User, m.Password, m.DBName, sslmode)
}

type ObjectStoreConfig struct {
	Type            string `toml:"type"`
	Bucket          string `toml:"bucket"`
	CredentialsFile string `toml:"credentials_file"`
	GoogleAccessID  string `toml:"google_access_id"`
	PrivateKeyFile  string `toml:"private_key_file"`
	LocalDir        string `toml:"local_dir"`
	SigningKey      string `toml:"signing_key"`
	PublicBaseURL   string `toml:"public_base_url"`
}

type BootstrapAdminConfig struct {
	Username string `toml:"username"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// DefaultConfig is the development configuration: in-memory metadata and a
// local blob directory.
func DefaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerPort:              "8194",
		HandleCORS:              true,
		LogLevel:                "info",
		SessionSecret:           devSessionSecret,
		SessionValidity:         "12h",
		DownloadValidityHours:   1,
		DirectLinkValidityHours: 5,
		MaxLineageDepth:         1000,
		MaxUploadSizeMB:         512,
		MetadataStore: MetadataStoreConfig{
			Type: MetadataStoreMemory,
		},
		ObjectStore: ObjectStoreConfig{
			Type:          ObjectStoreLocal,
			LocalDir:      "./blobs",
			SigningKey:    devSigningKey,
			PublicBaseURL: "http://localhost:8194",
		},
	}
}

func LoadConfig(filename string) (*ConfigParam, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateSecrets(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSecrets rejects a loaded file that leaves a signing secret empty or
// at its development value.
func (c *ConfigParam) validateSecrets() error {
	if c.SessionSecret == "" || c.SessionSecret == devSessionSecret {
		return fmt.Errorf("session_secret must be set")
	}
	if c.ObjectStore.Type == ObjectStoreLocal && c.ObjectStore.SigningKey == devSigningKey {
		return fmt.Errorf("object_store: signing_key must be set")
	}
	return nil
}

func (c *ConfigParam) validate() error {
	switch c.MetadataStore.Type {
	case MetadataStoreMemory:
	case MetadataStorePostgres:
		if c.MetadataStore.Host == "" || c.MetadataStore.DBName == "" {
			return fmt.Errorf("metadata_store: host and dbname are required for %s", MetadataStorePostgres)
		}
	default:
		return fmt.Errorf("metadata_store: unknown type %q", c.MetadataStore.Type)
	}
	switch c.ObjectStore.Type {
	case ObjectStoreLocal:
		if c.ObjectStore.LocalDir == "" || c.ObjectStore.SigningKey == "" {
			return fmt.Errorf("object_store: local_dir and signing_key are required for %s", ObjectStoreLocal)
		}
	case ObjectStoreGCS:
		if c.ObjectStore.Bucket == "" {
			return fmt.Errorf("object_store: bucket is required for %s", ObjectStoreGCS)
		}
	default:
		return fmt.Errorf("object_store: unknown type %q", c.ObjectStore.Type)
	}
	if _, err := ParseTokenDuration(c.SessionValidity); err != nil {
		return fmt.Errorf("session_validity: %v", err)
	}
	if c.DownloadValidityHours <= 0 || c.DirectLinkValidityHours <= 0 {
		return fmt.Errorf("download and direct link validity must be positive")
	}
	return nil
}

func (c *ConfigParam) SessionDuration() time.Duration {
	d, err := ParseTokenDuration(c.SessionValidity)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

func (c *ConfigParam) DownloadValidity() time.Duration {
	return time.Duration(c.DownloadValidityHours) * time.Hour
}

func (c *ConfigParam) DirectLinkValidity() time.Duration {
	return time.Duration(c.DirectLinkValidityHours) * time.Hour
}

func ParseTokenDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "y":
		// 1 year = 365 days
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}
