package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30m", 30 * time.Minute, false},
		{"12h", 12 * time.Hour, false},
		{"2d", 48 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"h", 0, true},
		{"10s", 0, true},
		{"xh", 0, true},
		{"0h", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTokenDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, MetadataStoreMemory, cfg.MetadataStore.Type)
		assert.Equal(t, ObjectStoreLocal, cfg.ObjectStore.Type)
		assert.Equal(t, time.Hour, cfg.DownloadValidity())
		assert.Equal(t, 5*time.Hour, cfg.DirectLinkValidity())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.toml")
		content := `
server_port = "9000"
session_secret = "0d6f3c2a9b"
session_validity = "1d"

[metadata_store]
type = "postgresql"
host = "localhost"
dbname = "catalog"
user = "catalog"

[object_store]
type = "gcs"
bucket = "catalog-files"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.ServerPort)
		assert.Equal(t, 24*time.Hour, cfg.SessionDuration())
		assert.Equal(t, MetadataStorePostgres, cfg.MetadataStore.Type)
		assert.Contains(t, cfg.MetadataStore.DSN(), "port=5432")
		assert.Contains(t, cfg.MetadataStore.DSN(), "sslmode=disable")
		assert.Equal(t, "catalog-files", cfg.ObjectStore.Bucket)
		assert.Equal(t, 1, cfg.DownloadValidityHours)
	})

	t.Run("unknown store type is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.toml")
		require.NoError(t, os.WriteFile(path, []byte("[metadata_store]\ntype = \"cosmos\"\n"), 0o600))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("development secrets are rejected", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{"no session secret", "[metadata_store]\ntype = \"memory\"\n"},
			{"development session secret", "session_secret = \"dev-session-secret\"\n"},
			{"development signing key", "session_secret = \"s3cret\"\n[object_store]\ntype = \"local\"\nlocal_dir = \"/tmp/blobs\"\nsigning_key = \"dev-signing-key\"\n"},
			{"signing key left at default", "session_secret = \"s3cret\"\n"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "catalog.toml")
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
				_, err := LoadConfig(path)
				assert.Error(t, err)
			})
		}

		path := filepath.Join(t.TempDir(), "catalog.toml")
		content := "session_secret = \"s3cret\"\n[object_store]\nsigning_key = \"k3y\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cfg.SessionSecret)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}
