package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_AreValid(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "local"
log_level = "debug"

[betting]
min_stake = 50
sweep_interval = "10s"

[postgres]
host = "db.internal"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(50), cfg.Betting.MinStake)
	assert.Equal(t, 10*time.Second, cfg.Betting.SweepInterval.Duration)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)

	// Untouched fields keep their defaults.
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "daemon"`), 0o600))

	t.Setenv("MATCHPOOL_MODE", "monitor")
	t.Setenv("MATCHPOOL_POSTGRES_PASSWORD", "sekret")
	t.Setenv("MATCHPOOL_BETTING_MIN_STAKE", "250")
	t.Setenv("MATCHPOOL_BETTING_SWEEP_INTERVAL", "90s")
	t.Setenv("MATCHPOOL_REDIS_TLS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "sekret", cfg.Postgres.Password)
	assert.Equal(t, uint64(250), cfg.Betting.MinStake)
	assert.Equal(t, 90*time.Second, cfg.Betting.SweepInterval.Duration)
	assert.True(t, cfg.Redis.TLSEnabled)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Betting.MinStake = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "min_stake")
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestValidate_LocalModeNeedsNoBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "local"
	cfg.Postgres = PostgresConfig{}
	cfg.Redis = RedisConfig{}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_ArchiveNeedsS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}
