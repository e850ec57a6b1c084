package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEAMSNAP_ACCESS_TOKEN", "")
	t.Setenv("TEAMSNAP_READONLY", "")
	t.Setenv("TEAMSNAP_CREDENTIALS_FILE", "")
	t.Setenv("TEAMSNAP_SCOPE", "")
	t.Setenv("TEAMSNAP_WATCH_CREDENTIALS", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.AccessToken)
	assert.True(t, cfg.ReadOnly, "writes must be opted into")
	assert.Equal(t, "read write", cfg.Scope)
	assert.True(t, cfg.WatchCredentials)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.True(t, strings.HasSuffix(cfg.CredentialsFile, ".teamsnap/credentials.yml"),
		"default credentials path, got %s", cfg.CredentialsFile)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TEAMSNAP_ACCESS_TOKEN", "direct-token")
	t.Setenv("TEAMSNAP_READONLY", "false")
	t.Setenv("TEAMSNAP_CREDENTIALS_FILE", "/tmp/creds.yml")
	t.Setenv("TEAMSNAP_SCOPE", "read")
	t.Setenv("TEAMSNAP_WATCH_CREDENTIALS", "false")
	t.Setenv("TEAMSNAP_SNAPSHOT_DB", "/tmp/snaps.db")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "direct-token", cfg.AccessToken)
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, "/tmp/creds.yml", cfg.CredentialsFile)
	assert.Equal(t, "read", cfg.Scope)
	assert.False(t, cfg.WatchCredentials)
	assert.Equal(t, "/tmp/snaps.db", cfg.SnapshotPath)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("TEAMSNAP_READONLY", "definitely")

	_, err := Load()
	require.Error(t, err)
}
