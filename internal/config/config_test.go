package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// missingEnvFile keeps Load from picking up a developer's .env.
func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.Timeout)
	assert.Equal(t, 7, cfg.Ingestion.DefaultMaxBackdateDays)
	assert.Equal(t, "@every 5m", cfg.Approval.AutoApproveSchedule)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("INGEST_TIMEOUT", "5s")
	t.Setenv("DEFAULT_MAX_BACKDATE_DAYS", "3")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")
	t.Setenv("META_VERIFY_TOKEN", "verify")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, StorageMongoDB, cfg.Storage.Driver)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, 5*time.Second, cfg.Ingestion.Timeout)
	assert.Equal(t, 3, cfg.Ingestion.DefaultMaxBackdateDays)
	assert.True(t, cfg.WhatsApp.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing api key":   {"ANTHROPIC_API_KEY": ""},
		"bad timeout":       {"INGEST_TIMEOUT": "soon"},
		"bad backdate":      {"DEFAULT_MAX_BACKDATE_DAYS": "a week"},
		"unknown driver":    {"STORAGE_DRIVER": "postgres"},
		"bad timezone":      {"TIMEZONE": "Mars/Olympus"},
		"whatsapp no token": {"WHATSAPP_TOKEN": "t", "WHATSAPP_PHONE_NUMBER_ID": "1", "META_VERIFY_TOKEN": ""},
		"half sheets":       {"GOOGLE_SHEETS_CREDENTIALS_PATH": "/tmp/creds.json"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", "test-key")
			t.Setenv("STORAGE_DRIVER", "memory")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
