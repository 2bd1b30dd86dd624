package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocontracts/config"
)

func TestLoadConfig_MemoryDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Memory")

	cfg, err := config.LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, config.StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.CacheEnabled())
}

func TestLoadConfig_PostgresRequiresURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := config.LoadConfig()

	assert.Error(t, err)
}

func TestLoadConfig_ParsesDurations(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := config.LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := config.LoadConfig()

	assert.Error(t, err)
}
