package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/internal/retry"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, visitors.SQLServer, cfg.Dialect())
	assert.Equal(t, "none", cfg.Cache.Kind)
	assert.True(t, cfg.Cache.SingleFlight)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)

	p := cfg.RetryPolicy(nil)
	assert.Equal(t, retry.DefaultAttempts, p.Attempts)
	assert.Equal(t, retry.DefaultBase, p.Base)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "jsonq.yaml"))
	require.NoError(t, err)
	assert.Equal(t, visitors.SQLite, cfg.Dialect())
	assert.Equal(t, "file:motorent.db", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Base)
	assert.Equal(t, "memory", cfg.Cache.Kind)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)

	m, err := cfg.Entity("Core.Widget")
	require.NoError(t, err)
	assert.Equal(t, "IsDeleted", m.SoftDelete)
	assert.Equal(t, []entity.Column{
		{Field: "Name", Type: entity.TypeString},
		{Field: "Price", Type: entity.TypeDecimal},
		{Field: "Address.City", Name: "City", Type: entity.TypeString},
	}, m.Columns)

	assert.Equal(t, map[string]string{"Core.Widget": "City"}, cfg.ScopeColumns())

	_, err = cfg.Entity("Widget")
	assert.NoError(t, err)
	_, err = cfg.Entity("Gadget")
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("JSONQ_DATABASE_DIALECT", "postgres")
	t.Setenv("JSONQ_RETRY_BASE", "2s")
	t.Setenv("JSONQ_CACHE_SINGLE_FLIGHT", "false")

	cfg, err := Load(filepath.Join("testdata", "jsonq.yaml"))
	require.NoError(t, err)
	assert.Equal(t, visitors.Postgres, cfg.Dialect())
	assert.Equal(t, 2*time.Second, cfg.Retry.Base)
	assert.False(t, cfg.Cache.SingleFlight)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"dialect", "database:\n  dialect: oracle\n"},
		{"cache kind", "cache:\n  kind: disk\n"},
		{"attempts", "retry:\n  attempts: 0\n"},
		{"column type", "entities:\n  - schema: Core\n    name: Widget\n    columns:\n      - field: Price\n        type: money\n"},
		{"entity name", "entities:\n  - schema: Core\n"},
		{"scope column", "entities:\n  - schema: Core\n    name: Widget\n    scope_column: City\n    columns:\n      - field: Address.City\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "jsonq.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
