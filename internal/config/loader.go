package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MATCHPOOL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MATCHPOOL_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Betting ──
	setUint64(&cfg.Betting.MinStake, "MATCHPOOL_BETTING_MIN_STAKE")
	setDuration(&cfg.Betting.SweepInterval, "MATCHPOOL_BETTING_SWEEP_INTERVAL")
	setInt(&cfg.Betting.RateLimit, "MATCHPOOL_BETTING_RATE_LIMIT")
	setDuration(&cfg.Betting.RateWindow, "MATCHPOOL_BETTING_RATE_WINDOW")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MATCHPOOL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MATCHPOOL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MATCHPOOL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MATCHPOOL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MATCHPOOL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MATCHPOOL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MATCHPOOL_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MATCHPOOL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MATCHPOOL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MATCHPOOL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MATCHPOOL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MATCHPOOL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MATCHPOOL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MATCHPOOL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MATCHPOOL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MATCHPOOL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MATCHPOOL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MATCHPOOL_S3_REGION")
	setStr(&cfg.S3.Bucket, "MATCHPOOL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MATCHPOOL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MATCHPOOL_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "MATCHPOOL_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MATCHPOOL_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "MATCHPOOL_ARCHIVE_RETENTION_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MATCHPOOL_MODE")
	setStr(&cfg.LogLevel, "MATCHPOOL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
