package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		t.Setenv("DB_DRIVER", "")
		t.Setenv("DB_URI", "")
		t.Setenv("BADGER_DB_PATH", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "badger", cfg.Database.Driver)
		assert.Equal(t, "./zonegraph_db", cfg.Database.URI)
		assert.Equal(t, 6000, cfg.Ingestion.MaxContentLength)
		assert.Equal(t, 500, cfg.Ingestion.PacingMillis)
		assert.Equal(t, "default", cfg.Ingestion.GroupID)
		assert.True(t, cfg.CircuitBreaker.Enabled)
		assert.Equal(t, uint32(1), cfg.CircuitBreaker.MaxRequests)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("environment overrides", func(t *testing.T) {
		viper.Reset()
		t.Setenv("DB_DRIVER", "neo4j")
		t.Setenv("NEO4J_URI", "bolt://graph:7687")
		t.Setenv("NEO4J_USER", "neo4j")
		t.Setenv("NEO4J_PASSWORD", "secret")
		t.Setenv("ZONEGRAPH_MAX_CONTENT_LENGTH", "3000")
		t.Setenv("ZONEGRAPH_GROUP_ID", "stadium")
		t.Setenv("SERVER_PORT", "9090")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "neo4j", cfg.Database.Driver)
		assert.Equal(t, "bolt://graph:7687", cfg.Database.URI)
		assert.Equal(t, "neo4j", cfg.Database.Username)
		assert.Equal(t, "secret", cfg.Database.Password)
		assert.Equal(t, 3000, cfg.Ingestion.MaxContentLength)
		assert.Equal(t, "stadium", cfg.Ingestion.GroupID)
		assert.Equal(t, 9090, cfg.Server.Port)
	})

	t.Run("invalid numeric env is ignored", func(t *testing.T) {
		viper.Reset()
		t.Setenv("ZONEGRAPH_MAX_CONTENT_LENGTH", "lots")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.Ingestion.MaxContentLength)
	})
}
